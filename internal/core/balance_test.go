package core

import "testing"

func entry(cents int64, category string) Transaction {
	return Transaction{
		Tipo:       Entrada,
		Amount:     Money{Cents: cents},
		Category:   category,
		OccurredAt: NewDate(2024, 5, 1),
	}
}

func expense(cents int64) Transaction {
	return Transaction{
		Tipo:       Saida,
		Amount:     Money{Cents: cents},
		Category:   "Luz",
		OccurredAt: NewDate(2024, 5, 10),
	}
}

func TestComputeBalancesMonth(t *testing.T) {
	period := []Transaction{entry(30000, CategoryDizimo), expense(12000)}

	b := ComputeBalances(period, period)
	if b.PeriodIncome.Cents != 30000 {
		t.Errorf("PeriodIncome = %d, want 30000", b.PeriodIncome.Cents)
	}
	if b.PeriodExpense.Cents != 12000 {
		t.Errorf("PeriodExpense = %d, want 12000", b.PeriodExpense.Cents)
	}
	if b.PeriodNet.Cents != 18000 {
		t.Errorf("PeriodNet = %d, want 18000", b.PeriodNet.Cents)
	}

	// An older entry outside the period moves only the aggregate.
	all := append([]Transaction{entry(5000, CategoryOferta)}, period...)
	b = ComputeBalances(period, all)
	if b.PeriodNet.Cents != 18000 {
		t.Errorf("PeriodNet = %d, want 18000", b.PeriodNet.Cents)
	}
	if b.AggregateBalance.Cents != 23000 {
		t.Errorf("AggregateBalance = %d, want 23000", b.AggregateBalance.Cents)
	}
}

func TestComputeBalancesEmptyPeriod(t *testing.T) {
	all := []Transaction{entry(5000, CategoryOferta)}
	b := ComputeBalances(nil, all)
	if b.PeriodIncome.Cents != 0 || b.PeriodExpense.Cents != 0 || b.PeriodNet.Cents != 0 {
		t.Errorf("period fields not zero: %+v", b)
	}
	if len(b.IncomeDistribution) != 0 {
		t.Errorf("IncomeDistribution = %v, want empty", b.IncomeDistribution)
	}
	if b.AggregateBalance.Cents != 5000 {
		t.Errorf("AggregateBalance = %d, want 5000", b.AggregateBalance.Cents)
	}
}

func TestComputeBalancesIncomeAdditiveAcrossPartitions(t *testing.T) {
	a := []Transaction{entry(10000, CategoryDizimo), entry(2500, CategoryOferta), expense(700)}
	b := []Transaction{entry(999, CategoryCampanha), expense(12345), entry(1, CategoryDizimo)}
	union := append(append([]Transaction{}, a...), b...)

	whole := ComputeBalances(union, union)
	partA := ComputeBalances(a, union)
	partB := ComputeBalances(b, union)

	if whole.PeriodIncome.Cents != partA.PeriodIncome.Cents+partB.PeriodIncome.Cents {
		t.Errorf("income not additive: %d != %d + %d",
			whole.PeriodIncome.Cents, partA.PeriodIncome.Cents, partB.PeriodIncome.Cents)
	}
	if whole.PeriodExpense.Cents != partA.PeriodExpense.Cents+partB.PeriodExpense.Cents {
		t.Errorf("expense not additive: %d != %d + %d",
			whole.PeriodExpense.Cents, partA.PeriodExpense.Cents, partB.PeriodExpense.Cents)
	}
}

func TestComputeBalancesDistribution(t *testing.T) {
	period := []Transaction{
		entry(10000, "dizimo"), // normalized before grouping
		entry(5000, CategoryDizimo),
		entry(4000, CategoryOferta),
		entry(1000, CategoryCampanha),
	}
	b := ComputeBalances(period, period)

	if len(b.IncomeDistribution) != 3 {
		t.Fatalf("distribution size = %d, want 3", len(b.IncomeDistribution))
	}
	first := b.IncomeDistribution[0]
	if first.Category != CategoryDizimo || first.Amount.Cents != 15000 {
		t.Errorf("top share = %+v, want Dízimo 15000", first)
	}
	if first.Percent != 75 {
		t.Errorf("top share percent = %d, want 75", first.Percent)
	}
	for i := 1; i < len(b.IncomeDistribution); i++ {
		if b.IncomeDistribution[i].Amount.Cents > b.IncomeDistribution[i-1].Amount.Cents {
			t.Errorf("distribution not sorted descending: %v", b.IncomeDistribution)
		}
	}
}

func TestComputeBalancesPercentsSumNear100(t *testing.T) {
	period := []Transaction{
		entry(3333, CategoryDizimo),
		entry(3333, CategoryOferta),
		entry(3333, CategoryCampanha),
		entry(1, CategoryDoacao),
	}
	b := ComputeBalances(period, period)

	sum := 0
	for _, s := range b.IncomeDistribution {
		sum += s.Percent
	}
	slack := len(b.IncomeDistribution)
	if sum < 100-slack || sum > 100+slack {
		t.Errorf("percent sum = %d, outside 100±%d", sum, slack)
	}
}

func TestComputeBalancesZeroIncomePercent(t *testing.T) {
	period := []Transaction{entry(0, CategoryOferta), expense(500)}
	b := ComputeBalances(period, period)
	if len(b.IncomeDistribution) != 1 {
		t.Fatalf("distribution size = %d, want 1", len(b.IncomeDistribution))
	}
	if b.IncomeDistribution[0].Percent != 0 {
		t.Errorf("percent = %d, want 0 when period income is zero", b.IncomeDistribution[0].Percent)
	}
}
