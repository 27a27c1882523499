package converter

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/normalize"
	"github.com/ginjaninja78/statement-ingest/internal/testutil"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// assertInvariants checks the properties every output transaction must hold.
func assertInvariants(t *testing.T, transactions []types.Transaction) {
	t.Helper()

	for i, tx := range transactions {
		assert.True(t, tx.Amount.IsPositive(), "transaction %d amount %s", i, tx.Amount)
		assert.True(t, tx.Amount.Equal(normalize.RoundAmount(tx.Amount)), "transaction %d has more than two decimals", i)
		assert.True(t, tx.Type.IsValid(), "transaction %d type %q", i, tx.Type)
		_, err := time.Parse("2006-01-02", tx.TransactionDate)
		assert.NoError(t, err, "transaction %d date %q", i, tx.TransactionDate)
		assert.LessOrEqual(t, len([]rune(tx.Description)), 255)
		assert.LessOrEqual(t, len([]rune(tx.Merchant)), 100)
	}
}

func TestProcess_DebitCreditCSV(t *testing.T) {
	content := []byte("Date, Description, Debit, Credit\n2024-01-15, Coffee Shop, 4.50,\n")

	result, err := NewDefault().Process(content, "statement.csv")
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, "2024-01-15", tx.TransactionDate)
	assert.Equal(t, types.TypeExpense, tx.Type)
	assert.Equal(t, "4.50", tx.Amount.StringFixed(2))
	assert.Equal(t, "Coffee Shop", tx.Description)
	assert.Equal(t, "Coffee Shop", tx.Merchant)

	assert.Equal(t, "csv", result.Extraction.FileType)
	assert.Equal(t, 1, result.Extraction.RowsRead)
	assert.Equal(t, 1, result.Extraction.RowsProcessed)
	assert.Equal(t, []string{"Date", "Description", "Debit", "Credit"}, result.Extraction.ColumnsFound)
	assert.Equal(t, "Debit", result.Extraction.ColumnMapping["debit"])
	assert.NotEmpty(t, result.Extraction.Encoding)
	assertInvariants(t, result.Transactions)
}

func TestProcess_NegativeAmountColumn(t *testing.T) {
	content := []byte("Date, Narration, Amount\n15/01/2024, Salary Credit, -5000\n")

	tests := []struct {
		name       string
		convention types.TransactionType
		want       types.TransactionType
	}{
		{name: "default convention", convention: "", want: types.TypeIncome},
		{name: "expense convention", convention: types.TypeExpense, want: types.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultPipelineConfig()
			if tt.convention != "" {
				cfg.NegativeAmountType = tt.convention
			}

			result, err := New(cfg, zerolog.Nop()).Process(content, "salary.csv")
			require.NoError(t, err)

			require.Len(t, result.Transactions, 1)
			assert.Equal(t, "5000.00", result.Transactions[0].Amount.StringFixed(2))
			assert.Equal(t, tt.want, result.Transactions[0].Type)
			assert.Equal(t, "2024-01-15", result.Transactions[0].TransactionDate)
		})
	}
}

func TestProcess_SignedAmountColumn(t *testing.T) {
	content := []byte("Date,Narration,Amount\n" +
		"2024-01-16,Monthly Salary,50000.00\n" +
		"2024-01-17,Rent,-1200.00\n")

	tests := []struct {
		name       string
		negative   types.TransactionType
		wantSalary types.TransactionType
		wantRent   types.TransactionType
	}{
		{name: "defaults", wantSalary: types.TypeIncome, wantRent: types.TypeIncome},
		{name: "negative is expense", negative: types.TypeExpense, wantSalary: types.TypeIncome, wantRent: types.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultPipelineConfig()
			if tt.negative != "" {
				cfg.NegativeAmountType = tt.negative
			}

			result, err := New(cfg, zerolog.Nop()).Process(content, "s.csv")
			require.NoError(t, err)
			require.Len(t, result.Transactions, 2)

			byDescription := make(map[string]types.Transaction)
			for _, tx := range result.Transactions {
				byDescription[tx.Description] = tx
			}

			salary, ok := byDescription["Monthly Salary"]
			require.True(t, ok)
			assert.Equal(t, "50000.00", salary.Amount.StringFixed(2))
			assert.Equal(t, tt.wantSalary, salary.Type)

			rent, ok := byDescription["Rent"]
			require.True(t, ok)
			assert.Equal(t, "1200.00", rent.Amount.StringFixed(2))
			assert.Equal(t, tt.wantRent, rent.Type)
		})
	}
}

func TestProcess_DuplicateRows(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"2024-02-01,\"POS 12345678901 Grocery\",50.00\n" +
		"2024-02-01,\"POS 12345678901 Grocery\",50.00\n")

	result, err := NewDefault().Process(content, "dupes.csv")
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 2, result.Cleaning.OriginalCount)
	assert.Equal(t, 1, result.Cleaning.DuplicatesRemoved)
	assert.Equal(t, "Grocery", result.Transactions[0].Description)
	assertInvariants(t, result.Transactions)
}

func TestProcess_PDFTextFallback(t *testing.T) {
	content := testutil.BuildPDF(testutil.PDFPage{
		Texts: []testutil.PDFText{
			{X: 72, Y: 720, Text: "01-03-2024 Payment to Landlord 1200.00"},
		},
	})

	result, err := NewDefault().Process(content, "statement.PDF")
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, "Payment to Landlord", tx.Description)
	assert.Equal(t, "1200.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "2024-03-01", tx.TransactionDate)
	assert.Equal(t, "Landlord", tx.Merchant)

	assert.Equal(t, "pdf", result.Extraction.FileType)
	assert.Equal(t, 1, result.Extraction.PagesRead)
	assert.Empty(t, result.Extraction.Warning)
	assertInvariants(t, result.Transactions)
}

func TestProcess_PDFWithoutRows(t *testing.T) {
	content := testutil.BuildPDF(testutil.PDFPage{
		Texts: []testutil.PDFText{{X: 72, Y: 720, Text: "Nothing to see here"}},
	})

	result, err := NewDefault().Process(content, "empty.pdf")
	require.NoError(t, err)

	assert.Empty(t, result.Transactions)
	assert.Equal(t, "No tabular data found in PDF", result.Extraction.Warning)
	assert.Equal(t, []string{}, result.Extraction.ColumnsFound)
}

func TestProcess_UnsupportedExtension(t *testing.T) {
	result, err := NewDefault().Process([]byte("Date,Amount\n2024-01-01,5\n"), "notes.txt")

	require.Error(t, err)
	assert.Nil(t, result)

	var unsupported *types.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".txt", unsupported.Extension)
	assert.Equal(t, "notes.txt", unsupported.Filename)
}

func TestProcess_ExtractionErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		format   string
	}{
		{name: "corrupt workbook", content: []byte("garbage"), filename: "statement.xlsx", format: "excel"},
		{name: "corrupt legacy workbook", content: []byte("garbage"), filename: "statement.xls", format: "excel"},
		{name: "corrupt document", content: []byte("%PDF-1.4 garbage"), filename: "statement.pdf", format: "pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewDefault().Process(tt.content, tt.filename)
			assert.Nil(t, result)

			var parseErr *types.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.format, parseErr.Format)
		})
	}
}

func TestProcess_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Txn Date", "Particulars", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"},
		{"02/01/2024", "UPI/SWIGGY 9876543210123", 250, "", 9750},
		{"03/01/2024", "SALARY JAN", "", 50000, 59750},
		{"Opening balance", "", "", "", 10000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := NewDefault().Process(buf.Bytes(), "bank.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "excel", result.Extraction.FileType)
	assert.Equal(t, "Sheet1", result.Extraction.Sheet)
	assert.Equal(t, 3, result.Extraction.RowsRead)
	assert.Equal(t, 2, result.Extraction.RowsProcessed)
	assert.Equal(t, map[string]int{"missing_date": 1}, result.Extraction.RowsDropped)

	require.Len(t, result.Transactions, 2)
	// Newest first.
	assert.Equal(t, "2024-01-03", result.Transactions[0].TransactionDate)
	assert.Equal(t, types.TypeIncome, result.Transactions[0].Type)
	assert.Equal(t, "Salary Jan", result.Transactions[0].Description)
	assert.Equal(t, "50000.00", result.Transactions[0].Amount.StringFixed(2))

	assert.Equal(t, "2024-01-02", result.Transactions[1].TransactionDate)
	assert.Equal(t, types.TypeExpense, result.Transactions[1].Type)
	assert.Equal(t, "Swiggy", result.Transactions[1].Description)

	assert.Equal(t, "50000.00", result.Cleaning.TotalIncome.StringFixed(2))
	assert.Equal(t, "250.00", result.Cleaning.TotalExpenses.StringFixed(2))
	assert.Equal(t, types.DateRange{Start: "2024-01-02", End: "2024-01-03"}, result.Cleaning.DateRange)
	assertInvariants(t, result.Transactions)
}

func TestProcess_RowDropCounters(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"pending,x,5\n" +
		"2024-01-01,y,0\n" +
		"2024-01-02,z,abc\n" +
		"2024-01-03,ok,7\n")

	result, err := NewDefault().Process(content, "mixed.csv")
	require.NoError(t, err)

	assert.Equal(t, 4, result.Extraction.RowsRead)
	assert.Equal(t, 1, result.Extraction.RowsProcessed)
	assert.Equal(t, map[string]int{
		"missing_date":   1,
		"zero_amount":    1,
		"invalid_amount": 1,
	}, result.Extraction.RowsDropped)
	assert.Len(t, result.Transactions, 1)
}

func TestProcess_DateFallbackIsReported(t *testing.T) {
	content := []byte("When,What,Amount\n2024-01-05,Tea,3\n")

	result, err := NewDefault().Process(content, "plain.csv")
	require.NoError(t, err)

	assert.Equal(t, "When", result.Extraction.ColumnMapping["date"])
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "2024-01-05", result.Transactions[0].TransactionDate)
}

func TestProcess_Idempotent(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"2024-01-15,NEFT ACME CORP SALARY,-5000\n" +
		"2024-01-16,Coffee at Blue Tokai,4.50\n" +
		"2024-01-16,Coffee at Blue Tokai,4.50\n" +
		"bad,row,1\n")

	pipeline := NewDefault()
	first, err := pipeline.Process(content, "a.csv")
	require.NoError(t, err)
	second, err := pipeline.Process(content, "a.csv")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Transactions, 2)
	assertInvariants(t, first.Transactions)
}
