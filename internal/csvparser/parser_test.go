package csvparser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

func fixedDetection(charset string) func([]byte) Detection {
	return func([]byte) Detection {
		return Detection{Charset: charset, Confidence: 80}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantHeaders []string
		wantRows    []types.Row
		wantDelim   rune
	}{
		{
			name:        "debit credit statement",
			content:     "Date,Description,Debit,Credit\n2024-01-15,Coffee Shop,4.50,\n",
			wantHeaders: []string{"Date", "Description", "Debit", "Credit"},
			wantRows: []types.Row{
				{"Date": "2024-01-15", "Description": "Coffee Shop", "Debit": "4.50", "Credit": ""},
			},
			wantDelim: ',',
		},
		{
			name:        "semicolon delimiter and quoted decimal comma",
			content:     "Datum;Text;Betrag\n15.01.2024;Miete;\"-1.200,00\"\n",
			wantHeaders: []string{"Datum", "Text", "Betrag"},
			wantRows: []types.Row{
				{"Datum": "15.01.2024", "Text": "Miete", "Betrag": "-1.200,00"},
			},
			wantDelim: ';',
		},
		{
			name:        "blank and duplicate headers",
			content:     "Date,,Amount,Amount\n2024-01-15,x,1,2\n",
			wantHeaders: []string{"Date", "Column_2", "Amount", "Amount.1"},
			wantRows: []types.Row{
				{"Date": "2024-01-15", "Column_2": "x", "Amount": "1", "Amount.1": "2"},
			},
			wantDelim: ',',
		},
		{
			name:        "suffixed duplicate collides with a real header",
			content:     "A,A,A.1\n1,2,3\n",
			wantHeaders: []string{"A", "A.1", "A.1.1"},
			wantRows: []types.Row{
				{"A": "1", "A.1": "2", "A.1.1": "3"},
			},
			wantDelim: ',',
		},
		{
			name:        "ragged rows and blank lines",
			content:     "\nDate,Description,Amount\n2024-01-15,Short\n,,\n2024-01-16,Long,5,extra\n",
			wantHeaders: []string{"Date", "Description", "Amount"},
			wantRows: []types.Row{
				{"Date": "2024-01-15", "Description": "Short", "Amount": ""},
				{"Date": "2024-01-16", "Description": "Long", "Amount": "5"},
			},
			wantDelim: ',',
		},
		{
			name:        "header only",
			content:     "Date,Description,Amount\n",
			wantHeaders: []string{"Date", "Description", "Amount"},
			wantRows:    []types.Row{},
			wantDelim:   ',',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Parse([]byte(tt.content), Options{Detect: fixedDetection("UTF-8")})
			require.NoError(t, err)

			assert.Equal(t, tt.wantHeaders, data.Headers)
			assert.Equal(t, tt.wantRows, data.Rows)
			assert.Equal(t, tt.wantDelim, data.Delimiter)
			assert.Equal(t, len(tt.wantRows), data.RowCount)
			assert.Equal(t, len(tt.wantHeaders), data.ColumnCount)
			assert.Equal(t, "utf-8", data.Encoding)
		})
	}
}

func TestParse_EmptyFile(t *testing.T) {
	data, err := Parse(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, data.Headers)
	assert.Empty(t, data.Rows)
}

func TestParse_FallsBackWhenDetectionIsWrong(t *testing.T) {
	// "Café" in Latin-1 is not valid UTF-8.
	content := []byte("Date,Description,Amount\n2024-01-15,Caf\xe9,4.50\n")

	data, err := Parse(content, Options{Detect: fixedDetection("UTF-8")})
	require.NoError(t, err)

	assert.Equal(t, "latin-1", data.Encoding)
	assert.Equal(t, "Café", data.Rows[0]["Description"])
}

func TestParse_StripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Amount\n2024-01-15,1\n")...)

	data, err := Parse(content, Options{Detect: fixedDetection("")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount"}, data.Headers)
}

func TestParse_DetectedCharsetComesFirst(t *testing.T) {
	// 0x80 is the euro sign in cp1252 and a control character in Latin-1.
	content := []byte("Date,Description,Amount\n2024-01-15,Fee \x80,4.50\n")

	data, err := Parse(content, Options{Detect: fixedDetection("windows-1252")})
	require.NoError(t, err)

	assert.Equal(t, "cp1252", data.Encoding)
	assert.Equal(t, "Fee €", data.Rows[0]["Description"])
}

func TestParse_DecodingError(t *testing.T) {
	content := []byte("Date,Description\n2024-01-15,Caf\xe9\n")

	_, err := Parse(content, Options{
		Detect:            fixedDetection("no-such-charset"),
		FallbackEncodings: []string{"utf-8"},
	})
	require.Error(t, err)

	var decodingErr *types.DecodingError
	require.True(t, errors.As(err, &decodingErr))
	assert.Equal(t, "no-such-charset", decodingErr.Detected)
	require.Len(t, decodingErr.Attempts, 2)
	assert.Equal(t, "no-such-charset", decodingErr.Attempts[0].Encoding)
	assert.Equal(t, "utf-8", decodingErr.Attempts[1].Encoding)
	assert.Contains(t, err.Error(), "could not decode CSV file")
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "UTF-8", want: "utf-8"},
		{input: "ascii", want: "ascii"},
		{input: "US-ASCII", want: "ascii"},
		{input: "ISO-8859-1", want: "latin-1"},
		{input: "latin_1", want: "latin-1"},
		{input: "Windows-1252", want: "cp1252"},
		{input: "Shift_JIS", want: "shift_jis"},
		{input: "UTF-16LE", want: "utf-16le"},
		{input: "klingon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			decoder, err := LookupEncoding(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoder.Name)
		})
	}
}

func TestCandidateEncodings(t *testing.T) {
	got := candidateEncodings("ISO-8859-1", []string{"utf-8", "latin-1", "cp1252"})
	assert.Equal(t, []string{"ISO-8859-1", "utf-8", "cp1252"}, got)

	got = candidateEncodings("", []string{"utf-8", "UTF8"})
	assert.Equal(t, []string{"utf-8"}, got)
}

func TestParse_ASCIIContent(t *testing.T) {
	tests := []struct {
		name         string
		content      []byte
		wantDetected string
		wantEncoding string
	}{
		{
			name:         "seven bit file",
			content:      []byte("Date,Narration,Amount\n2024-01-16,Monthly Salary,50000.00\n"),
			wantDetected: "ascii",
			wantEncoding: "ascii",
		},
		{
			name:         "utf-8 beyond the sample",
			content:      []byte("Date,Note\n" + strings.Repeat("2024-01-16,plain\n", 5000) + "2024-01-17,Caf\u00e9\n"),
			wantDetected: "ascii",
			wantEncoding: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantDetected != "" {
				assert.Equal(t, Detection{Charset: tt.wantDetected, Confidence: 100}, DetectEncoding(tt.content))
			}

			data, err := Parse(tt.content, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantEncoding, data.Encoding)
		})
	}
}

func TestDetectEncoding_Empty(t *testing.T) {
	assert.Equal(t, Detection{}, DetectEncoding(nil))
}
