package importer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/statement-ingest/internal/categorizer/mocks"
	"github.com/ginjaninja78/statement-ingest/internal/converter"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

type processorFunc func(content []byte, filename string) (*converter.Result, error)

func (f processorFunc) Process(content []byte, filename string) (*converter.Result, error) {
	return f(content, filename)
}

const statement = "Date,Narration,Amount\n" +
	"2024-01-16,Coffee at Blue Tokai,4.50\n" +
	"2024-01-15,NEFT ACME CORP SALARY,-5000\n"

func fixedImporter(processor Processor, opts Options) *Importer {
	i := New(processor, opts)
	i.now = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) }
	i.newID = func() string { return "run-1" }
	return i
}

func TestImport_CategorizesEveryTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCategorizer := mocks.NewMockCategorizer(ctrl)
	gomock.InOrder(
		mockCategorizer.EXPECT().Categorize("Coffee at Blue Tokai", "Blue Tokai").Return("Food & Dining", 0.876),
		mockCategorizer.EXPECT().Categorize("Acme Corp Salary", "NEFT ACME CORP SALARY").Return("Others", 0.123),
	)

	imp := fixedImporter(converter.NewDefault(), Options{Categorizer: mockCategorizer})

	report, err := imp.Import(context.Background(), []byte(statement), "bank.csv")
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "bank.csv", report.FileName)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), report.ProcessedAt)

	require.Len(t, report.Transactions, 2)
	assert.Equal(t, "Food & Dining", report.Transactions[0].SuggestedCategory)
	assert.Equal(t, 0.88, report.Transactions[0].CategoryConfidence)
	assert.Equal(t, types.TypeIncome, report.Transactions[1].Type)
	assert.Equal(t, 0.12, report.Transactions[1].CategoryConfidence)

	assert.Equal(t, 2, report.Cleaning.CleanedCount)
	assert.Equal(t, "csv", report.Extraction.FileType)
	require.NotNil(t, report.Validation)
	assert.True(t, report.Validation.IsValid)
}

func TestImport_WithoutCategorizer(t *testing.T) {
	report, err := New(converter.NewDefault(), Options{}).Import(context.Background(), []byte(statement), "bank.csv")
	require.NoError(t, err)

	require.Len(t, report.Transactions, 2)
	for _, tx := range report.Transactions {
		assert.Empty(t, tx.SuggestedCategory)
		assert.Zero(t, tx.CategoryConfidence)
	}
	assert.NotEmpty(t, report.RunID)
}

func TestImport_FileTooLarge(t *testing.T) {
	called := false
	processor := processorFunc(func([]byte, string) (*converter.Result, error) {
		called = true
		return &converter.Result{}, nil
	})

	_, err := New(processor, Options{MaxFileSize: 8}).Import(context.Background(), []byte("123456789"), "big.csv")

	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.False(t, called)

	_, err = New(processor, Options{MaxFileSize: -1}).Import(context.Background(), []byte(strings.Repeat("x", 100)), "big.csv")
	assert.NoError(t, err)
}

func TestImport_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	processor := processorFunc(func([]byte, string) (*converter.Result, error) {
		<-release
		return &converter.Result{}, nil
	})

	report, err := New(processor, Options{Timeout: 20 * time.Millisecond}).
		Import(context.Background(), []byte("x"), "slow.csv")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestImport_Cancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	processor := processorFunc(func([]byte, string) (*converter.Result, error) {
		<-release
		return &converter.Result{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(processor, Options{}).Import(ctx, []byte("x"), "slow.csv")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestImport_PipelineError(t *testing.T) {
	_, err := New(converter.NewDefault(), Options{}).Import(context.Background(), []byte("x"), "notes.txt")

	var unsupported *types.UnsupportedFormatError
	assert.True(t, errors.As(err, &unsupported))
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte(statement), 0o644))

	report, err := New(converter.NewDefault(), Options{}).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "bank.csv", report.FileName)
	assert.Len(t, report.Transactions, 2)

	_, err = New(converter.NewDefault(), Options{MaxFileSize: 10}).ImportFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = New(converter.NewDefault(), Options{}).ImportFile(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestCategorizedTransaction_MarshalJSON(t *testing.T) {
	tx := CategorizedTransaction{
		Transaction: types.Transaction{
			TransactionDate: "2024-01-15",
			Type:            types.TypeExpense,
			Amount:          decimal.RequireFromString("4.5"),
			Description:     "Coffee Shop",
			Merchant:        "Coffee Shop",
		},
		SuggestedCategory:  "Food & Dining",
		CategoryConfidence: 0.88,
	}

	data, err := json.Marshal(tx)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"transaction_date": "2024-01-15",
		"type": "expense",
		"amount": 4.50,
		"description": "Coffee Shop",
		"merchant": "Coffee Shop",
		"suggested_category": "Food & Dining",
		"category_confidence": 0.88
	}`, string(data))
	assert.Contains(t, string(data), `"amount":4.50`)
}
