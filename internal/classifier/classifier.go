// =============================================================================
// Statement Ingest - Field Classifier
// =============================================================================
//
// Guesses which column of a statement holds which logical transaction field
// from the header labels alone. The decision table is data: an ordered list
// of (field -> synonyms) loaded from the pipeline configuration.
//
// MATCHING RULES:
//   - labels are case-folded and trimmed before comparison
//   - a label matches a field when it equals one of the field's synonyms or
//     contains one of them as a substring
//   - columns are scanned in table order and the first match wins
//   - fields with no matching column are left out of the FieldMap
//
// =============================================================================

package classifier

import (
	"strings"

	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// Classifier maps header labels to logical fields. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	table []config.FieldSynonyms
}

// New builds a classifier over the given ordered synonym table.
func New(table []config.FieldSynonyms) *Classifier {
	copied := make([]config.FieldSynonyms, len(table))
	for i, entry := range table {
		synonyms := make([]string, 0, len(entry.Synonyms))
		for _, synonym := range entry.Synonyms {
			if s := normalizeLabel(synonym); s != "" {
				synonyms = append(synonyms, s)
			}
		}
		copied[i] = config.FieldSynonyms{Field: entry.Field, Synonyms: synonyms}
	}
	return &Classifier{table: copied}
}

// NewDefault builds a classifier over the embedded synonym table.
func NewDefault() *Classifier {
	return New(config.DefaultPipelineConfig().FieldSynonyms)
}

// Classify resolves each logical field to the first column whose label
// matches one of its synonyms.
//
// PARAMETERS:
//   - labels: The column labels in source order.
//
// RETURNS:
//   - The FieldMap. Fields without a matching column are absent.
func (c *Classifier) Classify(labels []string) types.FieldMap {
	normalized := make([]string, len(labels))
	for i, label := range labels {
		normalized[i] = normalizeLabel(label)
	}

	assignments := make(map[types.Field]string)
	for _, entry := range c.table {
		for i, label := range normalized {
			if label != "" && matchesAny(label, entry.Synonyms) {
				assignments[entry.Field] = labels[i]
				break
			}
		}
	}

	return types.NewFieldMap(assignments)
}

func matchesAny(label string, synonyms []string) bool {
	for _, synonym := range synonyms {
		if label == synonym || strings.Contains(label, synonym) {
			return true
		}
	}
	return false
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
