package core

import (
	"strings"
	"time"
)

const (
	Entrada Tipo = "entrada"
	Saida   Tipo = "saida"
)

type (
	// Tipo tags a Transaction as incoming (entrada) or outgoing (saida).
	Tipo string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger movement for one tenant. Entrada
	// transactions carry Category/MemberID/PaymentMethod; saida
	// transactions carry Category/MainCategory/SubCategory.
	Transaction struct {
		ID          string
		TenantID    string
		Tipo        Tipo
		Amount      Money
		OccurredAt  Date
		Description string
		Settled     bool
		Category    string

		// Entrada fields.
		MemberID string
		// MemberName is a display cache resolved at write time. It goes
		// stale if the member is later renamed; no invalidation exists.
		MemberName    string
		PaymentMethod string

		// Saida fields.
		MainCategory string
		SubCategory  string

		// Version is bumped on every update; stale updates are rejected.
		Version        int64
		IdempotencyKey string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// TitheRecord is the per-member sub-ledger entry derived from a
	// tithe transaction. TransactionID is a weak back-reference.
	TitheRecord struct {
		ID            string
		TransactionID string
		TenantID      string
		MemberID      string
		Amount        Money
		OccurredAt    Date
		PaymentMethod string
		Description   string
	}

	Member struct {
		ID        string
		TenantID  string
		Name      string
		Tither    bool
		Baptized  bool
		CreatedAt time.Time
	}
)

// IsValid reports whether the tag is one of the two known kinds.
func (t Tipo) IsValid() bool {
	return t == Entrada || t == Saida
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsTitheWithMember reports whether the transaction must have a
// matching TitheRecord in its member's sub-ledger.
func (t Transaction) IsTitheWithMember() bool {
	return t.Tipo == Entrada && t.Category == CategoryDizimo && t.MemberID != ""
}

// TitheRecord builds the sub-ledger entry derived from the transaction.
// The record id is left for the store to assign.
func (t Transaction) TitheRecord() TitheRecord {
	return TitheRecord{
		TransactionID: t.ID,
		TenantID:      t.TenantID,
		MemberID:      t.MemberID,
		Amount:        t.Amount,
		OccurredAt:    t.OccurredAt,
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.TenantID) == "" {
		return ErrEmptyTenant
	}
	if !t.Tipo.IsValid() {
		return ErrInvalidTipo
	}
	if err := t.OccurredAt.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Tipo == Entrada {
		if strings.TrimSpace(t.PaymentMethod) == "" {
			return ErrEmptyPaymentMethod
		}
		if t.Category == CategoryDizimo && t.MemberID == "" {
			return ErrMissingMember
		}
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return ErrEmptyTenant
	}
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyMemberName
	}
	return nil
}
