package core

import (
	"math"
	"sort"
)

type (
	// CategoryShare is one slice of the income distribution.
	CategoryShare struct {
		Category string
		Amount   Money
		// Percent of the period income, rounded to the nearest integer.
		// Zero when the period income is zero.
		Percent int
	}

	// Balances is derived reporting data, never persisted.
	Balances struct {
		PeriodIncome  Money
		PeriodExpense Money
		PeriodNet     Money
		// AggregateBalance is the running total over the entire tenant
		// history, independent of the reporting period.
		AggregateBalance   Money
		IncomeDistribution []CategoryShare
	}
)

// ComputeBalances derives period totals and the aggregate running
// balance. periodTransactions is the reporting window's working set;
// allTransactions must be a superset covering the full tenant history
// (caller contract, not checked here). Pure function, no I/O.
func ComputeBalances(periodTransactions, allTransactions []Transaction) Balances {
	var b Balances

	byCategory := make(map[string]int64)
	var order []string
	for _, t := range periodTransactions {
		switch t.Tipo {
		case Entrada:
			b.PeriodIncome.Cents += t.Amount.Cents
			cat := Normalize(t.Category)
			if _, seen := byCategory[cat]; !seen {
				order = append(order, cat)
			}
			byCategory[cat] += t.Amount.Cents
		case Saida:
			b.PeriodExpense.Cents += t.Amount.Cents
		}
	}
	b.PeriodNet.Cents = b.PeriodIncome.Cents - b.PeriodExpense.Cents

	for _, t := range allTransactions {
		switch t.Tipo {
		case Entrada:
			b.AggregateBalance.Cents += t.Amount.Cents
		case Saida:
			b.AggregateBalance.Cents -= t.Amount.Cents
		}
	}

	for _, cat := range order {
		cents := byCategory[cat]
		percent := 0
		if b.PeriodIncome.Cents > 0 {
			percent = int(math.Round(float64(cents) * 100 / float64(b.PeriodIncome.Cents)))
		}
		b.IncomeDistribution = append(b.IncomeDistribution, CategoryShare{
			Category: cat,
			Amount:   Money{Cents: cents},
			Percent:  percent,
		})
	}
	// Descending by amount; the stable sort keeps first-seen order for
	// equal amounts.
	sort.SliceStable(b.IncomeDistribution, func(i, j int) bool {
		return b.IncomeDistribution[i].Amount.Cents > b.IncomeDistribution[j].Amount.Cents
	})

	return b
}
