package ledger

import (
	"testing"

	"tesouraria/internal/core"
)

func entry(category, memberID string) core.Transaction {
	return core.Transaction{
		ID:       "tx-1",
		TenantID: "t1",
		Tipo:     core.Entrada,
		Category: category,
		MemberID: memberID,
	}
}

func TestPlanTitheTransition(t *testing.T) {
	tests := []struct {
		name   string
		before core.Transaction
		after  core.Transaction
		want   TithePlan
	}{
		{
			name:   "non tithe stays non tithe",
			before: entry(core.CategoryOferta, ""),
			after:  entry(core.CategoryOferta, ""),
			want:   TithePlan{},
		},
		{
			name:   "becomes tithe with member",
			before: entry(core.CategoryOferta, ""),
			after:  entry(core.CategoryDizimo, "m1"),
			want:   TithePlan{Create: true},
		},
		{
			name:   "stops being tithe",
			before: entry(core.CategoryDizimo, "m1"),
			after:  entry(core.CategoryOferta, "m1"),
			want:   TithePlan{DeleteOld: true},
		},
		{
			name:   "tithe loses member",
			before: entry(core.CategoryDizimo, "m1"),
			after:  entry(core.CategoryDizimo, ""),
			want:   TithePlan{DeleteOld: true},
		},
		{
			name:   "tithe moves to another member",
			before: entry(core.CategoryDizimo, "m1"),
			after:  entry(core.CategoryDizimo, "m2"),
			want:   TithePlan{DeleteOld: true, Create: true},
		},
		{
			name:   "tithe same member amount change",
			before: entry(core.CategoryDizimo, "m1"),
			after:  entry(core.CategoryDizimo, "m1"),
			want:   TithePlan{UpdateInPlace: true},
		},
		{
			name:   "expense never touches the sub-ledger",
			before: core.Transaction{Tipo: core.Saida, Category: core.CategoryDizimo, MemberID: "m1"},
			after:  core.Transaction{Tipo: core.Saida, Category: core.CategoryDizimo, MemberID: "m1"},
			want:   TithePlan{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanTitheTransition(tt.before, tt.after)
			if got != tt.want {
				t.Errorf("PlanTitheTransition() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTithePlanIsNoop(t *testing.T) {
	if !(TithePlan{}).IsNoop() {
		t.Error("empty plan should be a noop")
	}
	if (TithePlan{Create: true}).IsNoop() {
		t.Error("create plan should not be a noop")
	}
}
