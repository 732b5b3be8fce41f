package ledger

import "tesouraria/internal/core"

// TithePlan is the minimal set of sub-ledger writes that keeps the
// tithe sub-ledger consistent with an entry transition. At most one
// old record is touched and at most one new record is written.
type TithePlan struct {
	// DeleteOld removes the record referencing the transaction before
	// the transition (old member's sub-ledger).
	DeleteOld bool
	// Create writes a fresh record for the post-transition state.
	Create bool
	// UpdateInPlace rewrites the existing record without moving it
	// between members.
	UpdateInPlace bool
}

// IsNoop reports whether the transition needs no sub-ledger write.
func (p TithePlan) IsNoop() bool {
	return !p.DeleteOld && !p.Create && !p.UpdateInPlace
}

// PlanTitheTransition decides the sub-ledger writes for an entry going
// from old to new state:
//
//	was  is   member-changed  action
//	no   no   -               nothing
//	no   yes  -               create
//	yes  yes  no              update in place
//	yes  yes  yes             delete old, create new
//	yes  no   -               delete old
func PlanTitheTransition(before, after core.Transaction) TithePlan {
	was := before.IsTitheWithMember()
	is := after.IsTitheWithMember()

	switch {
	case !was && !is:
		return TithePlan{}
	case !was && is:
		return TithePlan{Create: true}
	case was && !is:
		return TithePlan{DeleteOld: true}
	case before.MemberID != after.MemberID:
		return TithePlan{DeleteOld: true, Create: true}
	default:
		return TithePlan{UpdateInPlace: true}
	}
}
