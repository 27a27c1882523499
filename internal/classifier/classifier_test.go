package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		want    map[string]string
		missing []types.Field
	}{
		{
			name:   "debit credit statement",
			labels: []string{"Date", "Description", "Debit", "Credit"},
			want: map[string]string{
				"date":        "Date",
				"description": "Description",
				"debit":       "Debit",
				// "description" contains the credit synonym "cr" and comes first.
				"credit": "Description",
			},
			missing: []types.Field{types.FieldAmount, types.FieldBalance},
		},
		{
			name:   "single amount column",
			labels: []string{"Date", "Narration", "Amount"},
			want: map[string]string{
				"date":        "Date",
				"description": "Narration",
				"amount":      "Amount",
			},
			missing: []types.Field{types.FieldDebit, types.FieldCredit},
		},
		{
			name:   "case folding and trimming",
			labels: []string{"  TXN DATE ", "PARTICULARS", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"},
			want: map[string]string{
				"date":        "  TXN DATE ",
				"description": "PARTICULARS",
				"debit":       "Withdrawal Amt.",
				"credit":      "Deposit Amt.",
				"balance":     "Closing Balance",
			},
		},
		{
			name:   "first matching column wins",
			labels: []string{"Value Date", "Posting Date", "Payee", "Memo"},
			want: map[string]string{
				"date":        "Value Date",
				"merchant":    "Payee",
				"description": "Memo",
			},
		},
		{
			name:    "no headers",
			labels:  nil,
			want:    map[string]string{},
			missing: types.Fields,
		},
		{
			name:   "blank labels never match",
			labels: []string{"", "  "},
			want:   map[string]string{},
		},
	}

	c := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.labels)
			for field, column := range tt.want {
				assert.Equal(t, column, got.AsMap()[field], "field %s", field)
			}
			for _, field := range tt.missing {
				assert.False(t, got.Has(field), "field %s should be absent", field)
			}
		})
	}
}

func TestClassify_CustomTable(t *testing.T) {
	c := New([]config.FieldSynonyms{
		{Field: types.FieldDate, Synonyms: []string{"Buchungstag"}},
		{Field: types.FieldAmount, Synonyms: []string{"betrag"}},
	})

	got := c.Classify([]string{"Buchungstag", "Verwendungszweck", "Betrag (EUR)"})

	column, ok := got.Column(types.FieldDate)
	assert.True(t, ok)
	assert.Equal(t, "Buchungstag", column)

	column, ok = got.Column(types.FieldAmount)
	assert.True(t, ok)
	assert.Equal(t, "Betrag (EUR)", column)

	assert.Equal(t, 2, got.Len())
}
