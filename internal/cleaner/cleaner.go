// =============================================================================
// Statement Ingest - Transaction Cleaner
// =============================================================================
//
// The cleaner turns provisional transactions into final ones.
//
// CLEANING STEPS (fixed order):
//   1. Deduplicate on (date, amount, first 50 characters of the lower-cased
//      description); the first occurrence wins
//   2. Clean each row: re-validate the date, require a positive amount,
//      normalize description and merchant, infer the type if unknown
//   3. Sort by date, newest first
//
// Rows rejected in step 2 are counted, never returned as errors.
//
// =============================================================================

package cleaner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/normalize"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// dedupeDescriptionLength is the description prefix used in duplicate keys.
const dedupeDescriptionLength = 50

// Cleaner holds the compiled word lists. It is read-only after New and safe
// for concurrent use.
type Cleaner struct {
	noise           map[string]bool
	incomeKeywords  []string
	expenseKeywords []string
	prefix          *regexp.Regexp
}

// New builds a Cleaner from a lexicon.
func New(lexicon config.CleanerLexicon) *Cleaner {
	noise := make(map[string]bool, len(lexicon.NoiseWords))
	for _, word := range lexicon.NoiseWords {
		noise[strings.ToLower(word)] = true
	}

	return &Cleaner{
		noise:           noise,
		incomeKeywords:  lowerAll(lexicon.IncomeKeywords),
		expenseKeywords: lowerAll(lexicon.ExpenseKeywords),
		prefix:          prefixPattern(lexicon.TransferPrefixes),
	}
}

// NewDefault builds a Cleaner from the built-in lexicon.
func NewDefault() *Cleaner {
	return New(config.DefaultPipelineConfig().Cleaner)
}

// Clean runs the cleaning steps and summarizes the result.
func (c *Cleaner) Clean(provisional []types.ProvisionalTransaction) ([]types.Transaction, types.CleaningSummary) {
	unique := Deduplicate(provisional)

	results := make([]types.RowResult[types.Transaction], 0, len(unique))
	for _, candidate := range unique {
		results = append(results, c.cleanTransaction(candidate))
	}

	cleaned, failures := types.Partition(results)

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].TransactionDate > cleaned[j].TransactionDate
	})

	summary := Summarize(cleaned)
	summary.OriginalCount = len(provisional)
	summary.DuplicatesRemoved = len(provisional) - len(unique)
	summary.InvalidRemoved = len(failures)

	return cleaned, summary
}

// Deduplicate keeps the first of every group of transactions with the same
// date, amount and description prefix.
func Deduplicate(transactions []types.ProvisionalTransaction) []types.ProvisionalTransaction {
	seen := make(map[dedupeKey]bool, len(transactions))
	unique := make([]types.ProvisionalTransaction, 0, len(transactions))

	for _, t := range transactions {
		key := dedupeKey{
			date:        t.TransactionDate,
			amount:      normalize.FormatAmount(t.Amount),
			description: firstRunes(strings.ToLower(strings.TrimSpace(t.Description)), dedupeDescriptionLength),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, t)
	}

	return unique
}

type dedupeKey struct {
	date        string
	amount      string
	description string
}

func (c *Cleaner) cleanTransaction(t types.ProvisionalTransaction) types.RowResult[types.Transaction] {
	fail := func(reason types.RowErrorReason, detail string) types.RowResult[types.Transaction] {
		return types.RowResult[types.Transaction]{
			Err: &types.RowError{Row: t.RowNumber, Reason: reason, Detail: detail},
		}
	}

	date, ok := normalize.NormalizeDate(t.TransactionDate)
	if !ok {
		return fail(types.ReasonMissingDate, t.TransactionDate)
	}

	amount := normalize.RoundAmount(t.Amount)
	if !amount.IsPositive() {
		return fail(types.ReasonNonPositiveAmount, t.Amount.String())
	}

	description := c.CleanDescription(t.Description)
	merchant := c.CleanMerchant(t.Merchant, description)

	txType := t.Type
	if !txType.IsValid() {
		txType = c.InferType(description, merchant)
	}

	return types.RowResult[types.Transaction]{Value: types.Transaction{
		TransactionDate: date,
		Type:            txType,
		Amount:          amount,
		Description:     description,
		Merchant:        merchant,
	}}
}

// InferType scores income and expense keywords found in the description and
// merchant. Income needs strictly more hits; ties and no hits are expenses.
func (c *Cleaner) InferType(description, merchant string) types.TransactionType {
	text := strings.ToLower(description + " " + merchant)

	income, expense := 0, 0
	for _, keyword := range c.incomeKeywords {
		if strings.Contains(text, keyword) {
			income++
		}
	}
	for _, keyword := range c.expenseKeywords {
		if strings.Contains(text, keyword) {
			expense++
		}
	}

	if income > expense {
		return types.TypeIncome
	}
	return types.TypeExpense
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, word := range words {
		out[i] = strings.ToLower(word)
	}
	return out
}

// firstRunes returns the first n runes of s.
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
