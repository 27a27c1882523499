package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

//go:embed defaults.yaml
var defaultPipelineYAML []byte

// =============================================================================
// PIPELINE CONFIGURATION STRUCTURE
// =============================================================================

// PipelineConfig holds the declarative tables the ingestion pipeline runs on.
// Institution-specific header names and jargon are added here instead of in
// code.
type PipelineConfig struct {
	// Extend appends the sections of this file to the built-in tables
	// instead of replacing them.
	Extend bool `yaml:"extend"`

	// FieldSynonyms is the ordered classifier table.
	FieldSynonyms []FieldSynonyms `yaml:"field_synonyms"`

	// FallbackEncodings are tried in order after the detected charset.
	FallbackEncodings []string `yaml:"fallback_encodings"`

	// PositiveAmountType and NegativeAmountType are the types assigned to a
	// value found in a generic amount column, by sign ("income" or "expense").
	PositiveAmountType types.TransactionType `yaml:"positive_amount_type"`
	NegativeAmountType types.TransactionType `yaml:"negative_amount_type"`

	// Cleaner holds the word lists used by the transaction cleaner.
	Cleaner CleanerLexicon `yaml:"cleaner"`
}

// FieldSynonyms lists the header variants recognized for one logical field.
type FieldSynonyms struct {
	Field    types.Field `yaml:"field"`
	Synonyms []string    `yaml:"synonyms"`
}

// CleanerLexicon holds the static word lists of the transaction cleaner.
type CleanerLexicon struct {
	// NoiseWords are banking jargon popped from the end of extracted merchants.
	NoiseWords []string `yaml:"noise_words"`

	// IncomeKeywords and ExpenseKeywords score type inference.
	IncomeKeywords  []string `yaml:"income_keywords"`
	ExpenseKeywords []string `yaml:"expense_keywords"`

	// TransferPrefixes are network tags stripped from the start of descriptions.
	TransferPrefixes []string `yaml:"transfer_prefixes"`
}

// =============================================================================
// LOADING
// =============================================================================

// DefaultPipelineConfig returns the embedded tables.
func DefaultPipelineConfig() *PipelineConfig {
	config, err := parsePipelineConfig(defaultPipelineYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded pipeline defaults are invalid: %v", err))
	}
	return config
}

// LoadPipelineConfig loads a pipeline.yaml and combines it with the
// embedded defaults.
//
// PARAMETERS:
//   - path: The pipeline file. An empty path returns the defaults.
//
// RETURNS:
//   - The effective pipeline configuration.
//   - An error if the file cannot be read, parsed or validated.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	defaults := DefaultPipelineConfig()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var user PipelineConfig
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	var merged *PipelineConfig
	if user.Extend {
		merged, err = extendPipelineConfig(defaults, &user)
	} else {
		merged, err = replacePipelineConfig(defaults, &user)
	}
	if err != nil {
		return nil, err
	}

	normalizePipelineConfig(merged)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return merged, nil
}

func parsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var config PipelineConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	normalizePipelineConfig(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// replacePipelineConfig keeps every section the user set and takes the
// remaining ones from the defaults.
func replacePipelineConfig(defaults, user *PipelineConfig) (*PipelineConfig, error) {
	merged := *user
	if err := mergo.Merge(&merged, *defaults); err != nil {
		return nil, fmt.Errorf("failed to merge pipeline config: %w", err)
	}
	return &merged, nil
}

// extendPipelineConfig appends the user's synonyms and words to the defaults.
// Synonyms for a field already in the table are appended to that field's
// list so the table order is preserved; new fields go at the end.
func extendPipelineConfig(defaults, user *PipelineConfig) (*PipelineConfig, error) {
	merged := *defaults
	merged.FieldSynonyms = nil

	index := make(map[types.Field]int)
	for _, entry := range defaults.FieldSynonyms {
		index[entry.Field] = len(merged.FieldSynonyms)
		merged.FieldSynonyms = append(merged.FieldSynonyms, FieldSynonyms{
			Field:    entry.Field,
			Synonyms: append([]string(nil), entry.Synonyms...),
		})
	}
	for _, entry := range user.FieldSynonyms {
		field := types.Field(strings.ToLower(strings.TrimSpace(string(entry.Field))))
		if i, ok := index[field]; ok {
			merged.FieldSynonyms[i].Synonyms = append(merged.FieldSynonyms[i].Synonyms, entry.Synonyms...)
			continue
		}
		index[field] = len(merged.FieldSynonyms)
		merged.FieldSynonyms = append(merged.FieldSynonyms, entry)
	}

	merged.FallbackEncodings = append(append([]string(nil), defaults.FallbackEncodings...), user.FallbackEncodings...)
	if user.PositiveAmountType != "" {
		merged.PositiveAmountType = user.PositiveAmountType
	}
	if user.NegativeAmountType != "" {
		merged.NegativeAmountType = user.NegativeAmountType
	}

	lexicon := CleanerLexicon{
		NoiseWords:       append([]string(nil), defaults.Cleaner.NoiseWords...),
		IncomeKeywords:   append([]string(nil), defaults.Cleaner.IncomeKeywords...),
		ExpenseKeywords:  append([]string(nil), defaults.Cleaner.ExpenseKeywords...),
		TransferPrefixes: append([]string(nil), defaults.Cleaner.TransferPrefixes...),
	}
	if err := mergo.Merge(&lexicon, user.Cleaner, mergo.WithAppendSlice); err != nil {
		return nil, fmt.Errorf("failed to extend cleaner lexicon: %w", err)
	}
	merged.Cleaner = lexicon

	return &merged, nil
}

// normalizePipelineConfig case-folds and trims every table entry and drops
// duplicates and blanks.
func normalizePipelineConfig(config *PipelineConfig) {
	for i := range config.FieldSynonyms {
		entry := &config.FieldSynonyms[i]
		entry.Field = types.Field(strings.ToLower(strings.TrimSpace(string(entry.Field))))
		entry.Synonyms = normalizeWords(entry.Synonyms)
	}

	config.FallbackEncodings = normalizeWords(config.FallbackEncodings)
	config.PositiveAmountType = normalizeType(config.PositiveAmountType)
	config.NegativeAmountType = normalizeType(config.NegativeAmountType)

	config.Cleaner.NoiseWords = normalizeWords(config.Cleaner.NoiseWords)
	config.Cleaner.IncomeKeywords = normalizeWords(config.Cleaner.IncomeKeywords)
	config.Cleaner.ExpenseKeywords = normalizeWords(config.Cleaner.ExpenseKeywords)

	// Prefixes are matched case-insensitively; keep them as written.
	config.Cleaner.TransferPrefixes = dedupe(config.Cleaner.TransferPrefixes, strings.TrimSpace)
}

func normalizeType(t types.TransactionType) types.TransactionType {
	return types.TransactionType(strings.ToLower(strings.TrimSpace(string(t))))
}

func normalizeWords(words []string) []string {
	return dedupe(words, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupe(words []string, normalize func(string) string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, word := range words {
		word = normalize(word)
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the tables for unknown fields and empty sections.
func (c *PipelineConfig) Validate() error {
	if len(c.FieldSynonyms) == 0 {
		return fmt.Errorf("field_synonyms must not be empty")
	}

	seen := make(map[types.Field]bool)
	for _, entry := range c.FieldSynonyms {
		if !entry.Field.IsValid() {
			return fmt.Errorf("field_synonyms: unknown field %q", entry.Field)
		}
		if seen[entry.Field] {
			return fmt.Errorf("field_synonyms: field %q listed twice", entry.Field)
		}
		if len(entry.Synonyms) == 0 {
			return fmt.Errorf("field_synonyms: field %q has no synonyms", entry.Field)
		}
		seen[entry.Field] = true
	}

	if len(c.FallbackEncodings) == 0 {
		return fmt.Errorf("fallback_encodings must not be empty")
	}

	if !c.PositiveAmountType.IsValid() {
		return fmt.Errorf("positive_amount_type must be %q or %q, got %q",
			types.TypeIncome, types.TypeExpense, c.PositiveAmountType)
	}
	if !c.NegativeAmountType.IsValid() {
		return fmt.Errorf("negative_amount_type must be %q or %q, got %q",
			types.TypeIncome, types.TypeExpense, c.NegativeAmountType)
	}

	return nil
}

// Synonyms returns the synonym list for field, or nil.
func (c *PipelineConfig) Synonyms(field types.Field) []string {
	for _, entry := range c.FieldSynonyms {
		if entry.Field == field {
			return entry.Synonyms
		}
	}
	return nil
}
