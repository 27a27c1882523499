package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

func tx(date, amount string, txType types.TransactionType, description string) types.Transaction {
	return types.Transaction{
		TransactionDate: date,
		Type:            txType,
		Amount:          decimal.RequireFromString(amount),
		Description:     description,
	}
}

func summaryFor(transactions []types.Transaction) types.CleaningSummary {
	s := types.CleaningSummary{
		OriginalCount: len(transactions),
		CleanedCount:  len(transactions),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, t := range transactions {
		if t.Type == types.TypeIncome {
			s.IncomeCount++
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		} else {
			s.ExpenseCount++
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	return s
}

func rules(result *ValidationResult) []string {
	var out []string
	for _, err := range result.Errors {
		out = append(out, err.Rule)
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	transactions := []types.Transaction{
		tx("2024-03-01", "5000.00", types.TypeIncome, "Salary"),
		tx("2024-01-15", "4.50", types.TypeExpense, "Coffee Shop"),
	}

	result := Validate(transactions, summaryFor(transactions))

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.TransactionsValidated)
}

func TestValidateTransaction(t *testing.T) {
	tests := []struct {
		name string
		tx   types.Transaction
		want []string
	}{
		{name: "bad date", tx: tx("15/01/2024", "1", types.TypeExpense, "x"), want: []string{"date_format"}},
		{name: "zero amount", tx: tx("2024-01-15", "0", types.TypeExpense, "x"), want: []string{"positive_amount"}},
		{name: "too precise", tx: tx("2024-01-15", "1.005", types.TypeExpense, "x"), want: []string{"precision"}},
		{name: "unknown type", tx: tx("2024-01-15", "1", "transfer", "x"), want: []string{"transaction_type"}},
		{name: "long description", tx: tx("2024-01-15", "1", types.TypeIncome, strings.Repeat("d", 256)), want: []string{"max_length"}},
		{name: "empty description", tx: tx("2024-01-15", "1", types.TypeIncome, ""), want: []string{"required"}},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, err := range v.ValidateTransaction(3, tt.tx) {
				got = append(got, err.Rule)
				assert.Equal(t, 3, err.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTransaction_MerchantLength(t *testing.T) {
	transaction := tx("2024-01-15", "1", types.TypeIncome, "x")
	transaction.Merchant = strings.Repeat("m", 101)

	errors := NewValidator().ValidateTransaction(1, transaction)

	require.Len(t, errors, 1)
	assert.Equal(t, "merchant", errors[0].Field)
	assert.Equal(t, SeverityError, errors[0].Severity)
}

func TestValidate_DocumentLevel(t *testing.T) {
	transactions := []types.Transaction{
		tx("2024-01-15", "4.50", types.TypeExpense, "Coffee"),
		tx("2024-03-01", "5000", types.TypeIncome, "Salary"),
		tx("2024-03-01", "5000", types.TypeIncome, "SALARY"),
	}

	result := Validate(transactions, summaryFor(transactions))

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"sort_order", "duplicate"}, rules(result))
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, 3, result.Errors[1].Index)
}

func TestValidate_SummaryMismatch(t *testing.T) {
	transactions := []types.Transaction{
		tx("2024-01-15", "4.50", types.TypeExpense, "Coffee"),
	}
	summary := summaryFor(transactions)
	summary.TotalExpenses = decimal.RequireFromString("5")
	summary.IncomeCount = 2

	result := Validate(transactions, summary)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"summary", "summary"}, rules(result))
	assert.Equal(t, "income_count", result.Errors[0].Field)
	assert.Equal(t, "total_expenses", result.Errors[1].Field)
	assert.Equal(t, 0, result.Errors[0].Index)
}

func TestValidate_Options(t *testing.T) {
	transactions := []types.Transaction{
		tx("bad", "0", types.TypeExpense, ""),
		tx("also bad", "1", types.TypeExpense, "x"),
	}

	stop := NewValidatorWithOptions(ValidationOptions{StopOnFirstError: true}).
		ValidateAll(transactions, summaryFor(transactions))
	assert.Equal(t, 1, stop.ErrorCount)
	assert.Len(t, stop.Errors, 1)

	warnOnly := []types.Transaction{tx("2024-01-01", "1", types.TypeExpense, "")}
	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).
		ValidateAll(warnOnly, summaryFor(warnOnly))
	assert.False(t, strict.IsValid)
	assert.Equal(t, 0, strict.ErrorCount)
	assert.Equal(t, 1, strict.WarningCount)

	lenient := Validate(warnOnly, summaryFor(warnOnly))
	assert.True(t, lenient.IsValid)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{{
		Severity: SeverityError,
		Field:    "amount",
		Value:    "0",
		Message:  "Amount must be greater than zero",
		Index:    2,
	}})
	assert.Contains(t, out, "1 finding(s)")
	assert.Contains(t, out, "1. [ERROR] Transaction 2, Field 'amount': Amount must be greater than zero (value: '0')")
}
