package csvparser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// detectSampleSize bounds the bytes handed to the charset detector.
const detectSampleSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// ENCODING DETECTION
// =============================================================================

// Detection is the charset detector's best guess.
type Detection struct {
	Charset    string
	Confidence int
}

// DetectEncoding guesses the charset of content using byte statistics.
// A sample of 7-bit bytes is reported as ascii, which the statistical
// detector would otherwise label ISO-8859-1. An empty Charset means the
// detector had no opinion.
func DetectEncoding(content []byte) Detection {
	sample := content
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}
	if len(sample) == 0 {
		return Detection{}
	}
	if isASCII(sample) {
		return Detection{Charset: "ascii", Confidence: 100}
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || result == nil {
		return Detection{}
	}
	return Detection{Charset: result.Charset, Confidence: result.Confidence}
}

func isASCII(content []byte) bool {
	for _, b := range content {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// =============================================================================
// DECODERS
// =============================================================================

// Decoder turns raw bytes into UTF-8 text for one named encoding.
type Decoder struct {
	// Name is the canonical name reported in diagnostics.
	Name string

	enc       encoding.Encoding
	asciiOnly bool
}

// Decode converts content to a UTF-8 string. The utf-8 decoder is strict
// and fails on invalid byte sequences; the ascii decoder also fails on any
// byte above 0x7F.
func (d Decoder) Decode(content []byte) (string, error) {
	if d.asciiOnly {
		if !isASCII(content) {
			return "", fmt.Errorf("non-ascii byte in content")
		}
		return string(content), nil
	}
	if d.enc == nil {
		content = bytes.TrimPrefix(content, utf8BOM)
		if !utf8.Valid(content) {
			return "", fmt.Errorf("invalid utf-8 byte sequence")
		}
		return string(content), nil
	}

	decoded, err := d.enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// LookupEncoding resolves an encoding name as written in configuration or
// reported by the detector.
//
// SUPPORTED NAMES:
//   - utf-8 (also utf8)
//   - ascii (also us-ascii): 7-bit only
//   - latin-1 (also latin1, iso-8859-1): true ISO 8859-1
//   - cp1252 (also windows-1252)
//   - any WHATWG label known to x/text (shift_jis, utf-16le, gbk, ...)
func LookupEncoding(name string) (Decoder, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))

	switch strings.ReplaceAll(lowered, "_", "-") {
	case "utf-8", "utf8":
		return Decoder{Name: "utf-8"}, nil
	case "ascii", "us-ascii":
		return Decoder{Name: "ascii", asciiOnly: true}, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1", "l1":
		return Decoder{Name: "latin-1", enc: charmap.ISO8859_1}, nil
	case "cp1252", "windows-1252":
		return Decoder{Name: "cp1252", enc: charmap.Windows1252}, nil
	}

	enc, err := htmlindex.Get(lowered)
	if err != nil {
		return Decoder{}, fmt.Errorf("unknown encoding %q", name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = lowered
	}
	return Decoder{Name: canonical, enc: enc}, nil
}

// candidateEncodings orders the detected charset before the fallbacks and
// drops repeats of the same canonical encoding.
func candidateEncodings(detected string, fallbacks []string) []string {
	var names []string
	if detected != "" {
		names = append(names, detected)
	}
	names = append(names, fallbacks...)

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if decoder, err := LookupEncoding(name); err == nil {
			key = decoder.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
