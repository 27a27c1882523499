// =============================================================================
// Statement Ingest - Output Validation
// =============================================================================
//
// This module re-checks the cleaned transactions before they leave the
// process. The pipeline already enforces these properties; the validator
// reports any violation instead of trusting it.
//
// VALIDATION LEVELS:
//   1. Field-level: date format, amount sign and precision, type, lengths
//   2. Document-level: newest-first ordering, repeated transactions
//   3. Summary-level: the cleaning summary agrees with the transactions
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error carries the 1-based transaction index, field and value
//   - Severity "error" marks a broken invariant, "warning" a suspicious row
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Length limits of the cleaned text fields.
const (
	MaxDescriptionLength = 255
	MaxMerchantLength    = 100
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Field is the transaction field that failed validation.
	Field string `json:"field"`

	// Value is the offending value.
	Value string `json:"value"`

	// Rule is the name of the violated rule.
	Rule string `json:"rule"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Index is the 1-based position of the transaction, 0 for summary checks.
	Index int `json:"index"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Transaction %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Index,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool `json:"is_valid"`

	// Errors contains all findings, warnings included.
	Errors []*ValidationError `json:"errors"`

	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`

	// TransactionsValidated is the number of transactions checked.
	TransactionsValidated int `json:"transactions_validated"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks cleaned transactions.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks transactions and their summary with default options.
func Validate(transactions []types.Transaction, summary types.CleaningSummary) *ValidationResult {
	return NewValidator().ValidateAll(transactions, summary)
}

// ValidateAll runs every check and returns a detailed result.
//
// PARAMETERS:
//   - transactions: The cleaned transactions, newest first.
//   - summary: The summary the cleaner produced for them.
//
// RETURNS:
//   - The collected findings.
func (v *Validator) ValidateAll(transactions []types.Transaction, summary types.CleaningSummary) *ValidationResult {
	result := &ValidationResult{
		IsValid:               true,
		Errors:                make([]*ValidationError, 0),
		TransactionsValidated: len(transactions),
	}

	// record adds findings and reports whether validation should stop.
	record := func(findings []*ValidationError) bool {
		for _, err := range findings {
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false

				if v.options.StopOnFirstError {
					return true
				}
			} else {
				result.WarningCount++

				if v.options.TreatWarningsAsErrors {
					result.IsValid = false
				}
			}
		}
		return false
	}

	for i := range transactions {
		if record(v.ValidateTransaction(i+1, transactions[i])) {
			return result
		}
	}

	if record(v.validateDocument(transactions)) {
		return result
	}

	record(v.ValidateSummary(transactions, summary))
	return result
}

// ValidateTransaction checks the field-level invariants of one transaction.
func (v *Validator) ValidateTransaction(index int, tx types.Transaction) []*ValidationError {
	var errors []*ValidationError

	add := func(severity, field, value, rule, message string) {
		errors = append(errors, &ValidationError{
			Severity: severity,
			Field:    field,
			Value:    value,
			Rule:     rule,
			Message:  message,
			Index:    index,
		})
	}

	// =========================================================================
	// DATE
	// =========================================================================

	if _, err := time.Parse("2006-01-02", tx.TransactionDate); err != nil {
		add(SeverityError, "transaction_date", tx.TransactionDate, "date_format",
			"Date is not in YYYY-MM-DD format")
	}

	// =========================================================================
	// AMOUNT
	// =========================================================================

	if !tx.Amount.IsPositive() {
		add(SeverityError, "amount", tx.Amount.String(), "positive_amount",
			"Amount must be greater than zero")
	}
	if !tx.Amount.Equal(tx.Amount.Round(2)) {
		add(SeverityError, "amount", tx.Amount.String(), "precision",
			"Amount has more than 2 decimal places")
	}

	// =========================================================================
	// TYPE
	// =========================================================================

	if !tx.Type.IsValid() {
		add(SeverityError, "type", string(tx.Type), "transaction_type",
			"Type must be income or expense")
	}

	// =========================================================================
	// TEXT FIELDS
	// =========================================================================

	if n := len([]rune(tx.Description)); n > MaxDescriptionLength {
		add(SeverityError, "description", tx.Description, "max_length",
			fmt.Sprintf("Value exceeds maximum length of %d characters (actual: %d)", MaxDescriptionLength, n))
	}
	if n := len([]rune(tx.Merchant)); n > MaxMerchantLength {
		add(SeverityError, "merchant", tx.Merchant, "max_length",
			fmt.Sprintf("Value exceeds maximum length of %d characters (actual: %d)", MaxMerchantLength, n))
	}
	if strings.TrimSpace(tx.Description) == "" {
		add(SeverityWarning, "description", tx.Description, "required",
			"Description is empty")
	}

	return errors
}

// validateDocument checks ordering and repeated transactions.
func (v *Validator) validateDocument(transactions []types.Transaction) []*ValidationError {
	var errors []*ValidationError

	seen := make(map[string]int, len(transactions))
	for i, tx := range transactions {
		if i > 0 && tx.TransactionDate > transactions[i-1].TransactionDate {
			errors = append(errors, &ValidationError{
				Severity: SeverityError,
				Field:    "transaction_date",
				Value:    tx.TransactionDate,
				Rule:     "sort_order",
				Message:  fmt.Sprintf("Transaction is newer than the one before it (%s)", transactions[i-1].TransactionDate),
				Index:    i + 1,
			})
		}

		key := tx.TransactionDate + "|" + tx.Amount.StringFixed(2) + "|" + strings.ToLower(tx.Description)
		if first, ok := seen[key]; ok {
			errors = append(errors, &ValidationError{
				Severity: SeverityWarning,
				Field:    "description",
				Value:    tx.Description,
				Rule:     "duplicate",
				Message:  fmt.Sprintf("Same date, amount and description as transaction %d", first),
				Index:    i + 1,
			})
			continue
		}
		seen[key] = i + 1
	}

	return errors
}

// ValidateSummary checks that the summary agrees with the transactions.
func (v *Validator) ValidateSummary(transactions []types.Transaction, summary types.CleaningSummary) []*ValidationError {
	var errors []*ValidationError

	mismatch := func(field, got, want string) {
		errors = append(errors, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    got,
			Rule:     "summary",
			Message:  fmt.Sprintf("Summary reports %s, transactions give %s", got, want),
		})
	}

	income, expense := 0, 0
	totalIncome, totalExpenses := decimal.Zero, decimal.Zero
	for _, tx := range transactions {
		switch tx.Type {
		case types.TypeIncome:
			income++
			totalIncome = totalIncome.Add(tx.Amount)
		case types.TypeExpense:
			expense++
			totalExpenses = totalExpenses.Add(tx.Amount)
		}
	}

	if summary.CleanedCount != len(transactions) {
		mismatch("cleaned_count", fmt.Sprint(summary.CleanedCount), fmt.Sprint(len(transactions)))
	}
	if summary.IncomeCount != income {
		mismatch("income_count", fmt.Sprint(summary.IncomeCount), fmt.Sprint(income))
	}
	if summary.ExpenseCount != expense {
		mismatch("expense_count", fmt.Sprint(summary.ExpenseCount), fmt.Sprint(expense))
	}
	if !summary.TotalIncome.Equal(totalIncome) {
		mismatch("total_income", summary.TotalIncome.StringFixed(2), totalIncome.StringFixed(2))
	}
	if !summary.TotalExpenses.Equal(totalExpenses) {
		mismatch("total_expenses", summary.TotalExpenses.StringFixed(2), totalExpenses.StringFixed(2))
	}
	if summary.OriginalCount < summary.CleanedCount+summary.DuplicatesRemoved+summary.InvalidRemoved {
		mismatch("original_count", fmt.Sprint(summary.OriginalCount),
			fmt.Sprintf("at least %d", summary.CleanedCount+summary.DuplicatesRemoved+summary.InvalidRemoved))
	}

	return errors
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
