package cleaner

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// Summarize aggregates counts, totals and the date range of cleaned
// transactions. OriginalCount, DuplicatesRemoved and InvalidRemoved are left
// to the caller.
func Summarize(transactions []types.Transaction) types.CleaningSummary {
	summary := types.CleaningSummary{
		CleanedCount:  len(transactions),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}

	for _, t := range transactions {
		switch t.Type {
		case types.TypeIncome:
			summary.IncomeCount++
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		case types.TypeExpense:
			summary.ExpenseCount++
			summary.TotalExpenses = summary.TotalExpenses.Add(t.Amount)
		}

		if summary.DateRange.Start == "" || t.TransactionDate < summary.DateRange.Start {
			summary.DateRange.Start = t.TransactionDate
		}
		if t.TransactionDate > summary.DateRange.End {
			summary.DateRange.End = t.TransactionDate
		}
	}

	return summary
}
