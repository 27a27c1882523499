package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// currencySymbols are stripped before parsing.
const currencySymbols = "₹$€£¥"

var plainNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ParseAmount parses a currency-like cell into a signed decimal.
//
// ACCEPTED NOTATION:
//   - currency symbols (₹ $ € £ ¥) and any whitespace are ignored
//   - "(500.00)" and "-500.00" are negative
//   - thousands separators: when both '.' and ',' occur the last one is the
//     decimal separator ("1,234.56", "1.234,56"); a lone comma followed by
//     one or two digits is a decimal comma ("12,5"); otherwise commas are
//     thousands separators; several dots are thousands separators
//
// RETURNS:
//   - The amount, unrounded.
//   - false on unparseable input.
func ParseAmount(value string) (decimal.Decimal, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, value)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	s = normalizeSeparators(s)
	if !plainNumber.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeSeparators rewrites s so that '.' is the only separator and
// marks the decimal point.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		decimals := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && (decimals == 1 || decimals == 2) {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}

	return s
}

// RoundAmount rounds to cents.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders d with exactly two decimals and no grouping,
// e.g. "1234.56" or "-75.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatCurrency renders d for people: symbol, thousands commas, two
// decimals, negatives in parentheses ("(₹1,200.50)").
func FormatCurrency(d decimal.Decimal, symbol string) string {
	fixed := d.Abs().StringFixed(2)
	whole, cents := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	out := symbol + grouped.String() + "." + cents
	if d.IsNegative() && !d.Round(2).IsZero() {
		return "(" + out + ")"
	}
	return out
}
