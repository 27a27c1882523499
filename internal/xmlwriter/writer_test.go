package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/statement-ingest/internal/importer"
	"github.com/ginjaninja78/statement-ingest/internal/types"
	"github.com/ginjaninja78/statement-ingest/internal/validation"
)

func sampleReport() *importer.Report {
	return &importer.Report{
		RunID:       "run-1",
		FileName:    `R&D "statement".csv`,
		ProcessedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		Transactions: []importer.CategorizedTransaction{
			{
				Transaction: types.Transaction{
					TransactionDate: "2024-01-16",
					Type:            types.TypeExpense,
					Amount:          decimal.RequireFromString("4.5"),
					Description:     "Coffee <at> Blue Tokai",
					Merchant:        "Blue Tokai",
				},
				SuggestedCategory:  "Food & Dining",
				CategoryConfidence: 0.88,
			},
			{
				Transaction: types.Transaction{
					TransactionDate: "2024-01-15",
					Type:            types.TypeIncome,
					Amount:          decimal.RequireFromString("5000"),
					Description:     "Salary",
				},
			},
		},
		Extraction: types.ExtractionDiagnostics{
			FileType:      "csv",
			RowsRead:      3,
			RowsProcessed: 2,
			Encoding:      "utf-8",
			ColumnsFound:  []string{"Date", "Narration", "Amount"},
			ColumnMapping: map[string]string{"amount": "Amount", "date": "Date", "description": "Narration"},
			RowsDropped:   map[string]int{"missing_date": 1},
		},
		Cleaning: types.CleaningSummary{
			OriginalCount: 2,
			CleanedCount:  2,
			IncomeCount:   1,
			ExpenseCount:  1,
			DateRange:     types.DateRange{Start: "2024-01-15", End: "2024-01-16"},
			TotalIncome:   decimal.RequireFromString("5000"),
			TotalExpenses: decimal.RequireFromString("4.5"),
		},
		Validation: &validation.ValidationResult{IsValid: true, Errors: []*validation.ValidationError{}},
	}
}

func TestGenerate(t *testing.T) {
	out, err := Generate(sampleReport())
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<statement "))
	assert.Contains(t, doc, `file="R&amp;D &quot;statement&quot;.csv" run="run-1" processed_at="2024-02-01T10:00:00Z"`)
	assert.Contains(t, doc, "    <encoding>utf-8</encoding>\n")
	assert.Contains(t, doc, "<column>Narration</column>")
	assert.Contains(t, doc, `<reason name="missing_date">1</reason>`)
	assert.Contains(t, doc, `<date_range start="2024-01-15" end="2024-01-16"/>`)
	assert.Contains(t, doc, "<total_expenses>4.50</total_expenses>")
	assert.Contains(t, doc, `<validation is_valid="true" errors="0" warnings="0"/>`)
	assert.Contains(t, doc, "  <transaction n=\"1\">\n    <transaction_date>2024-01-16</transaction_date>\n")
	assert.Contains(t, doc, "<amount>4.50</amount>")
	assert.Contains(t, doc, "<description>Coffee &lt;at&gt; Blue Tokai</description>")
	assert.Contains(t, doc, "<suggested_category>Food &amp; Dining</suggested_category>")
	assert.Contains(t, doc, "<category_confidence>0.88</category_confidence>")
	assert.Contains(t, doc, "<merchant/>")
	assert.True(t, strings.HasSuffix(doc, "</statement>\n"))

	// Mapping follows canonical field order.
	date := strings.Index(doc, `<field name="date">`)
	description := strings.Index(doc, `<field name="description">`)
	amount := strings.Index(doc, `<field name="amount">`)
	assert.True(t, date < description && description < amount)

	// The second transaction has no suggestion.
	second := doc[strings.Index(doc, `<transaction n="2">`):]
	assert.NotContains(t, second, "suggested_category")
}

func TestGenerate_WellFormed(t *testing.T) {
	out, err := Generate(sampleReport())
	require.NoError(t, err)

	decoder := xml.NewDecoder(bytes.NewReader(out))
	transactions := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if start, ok := token.(xml.StartElement); ok && start.Name.Local == "transaction" {
			transactions++
		}
	}
	assert.Equal(t, 2, transactions)
}

func TestGenerateWithOptions(t *testing.T) {
	options := DefaultGenerateOptions()
	options.IncludeXMLDeclaration = false
	options.Indent = "\t"
	options.RootElement = "bank_statement"

	out, err := GenerateWithOptions(sampleReport(), options)
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<bank_statement "))
	assert.Contains(t, doc, "\n\t<extraction>\n")

	_, err = Generate(nil)
	assert.Error(t, err)
}

func TestGenerate_ValidationFindings(t *testing.T) {
	report := sampleReport()
	report.Validation = &validation.ValidationResult{
		ErrorCount: 1,
		Errors: []*validation.ValidationError{{
			Severity: validation.SeverityError,
			Rule:     "sort_order",
			Field:    "transaction_date",
			Message:  "Transaction is newer than the one before it",
			Index:    2,
		}},
	}

	out, err := Generate(report)
	require.NoError(t, err)

	assert.Contains(t, string(out), `<validation is_valid="false" errors="1" warnings="0">`)
	assert.Contains(t, string(out), `<finding severity="error" rule="sort_order" field="transaction_date" index="2">Transaction is newer than the one before it</finding>`)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", escapeXML(`a & b <c> "d" 'e'`))
}

func TestGenerateXSD(t *testing.T) {
	xsd := GenerateXSD()

	require.NoError(t, xml.Unmarshal(xsd, new(struct{})))
	assert.Contains(t, string(xsd), `<xs:complexType name="transactionType">`)
	assert.Contains(t, string(xsd), `<xs:maxLength value="255"/>`)
	assert.Contains(t, string(xsd), `<xs:attribute name="n" type="xs:positiveInteger" use="required"/>`)
}
