// Package testutil builds in-memory fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFText is a string drawn at a baseline origin with 10pt Helvetica.
type PDFText struct {
	X, Y float64
	Text string
}

// PDFRect is a filled rectangle.
type PDFRect struct {
	X, Y, W, H float64
}

// PDFPage is the content of one page.
type PDFPage struct {
	Texts []PDFText
	Rects []PDFRect
}

// PDFFontSize is the size every PDFText is drawn at.
const PDFFontSize = 10

// BuildPDF writes a minimal uncompressed PDF with one page per PDFPage.
// Every printable ASCII glyph is 500 units wide, so a character advances
// 5pt and a space leaves a 5pt gap.
func BuildPDF(pages ...PDFPage) []byte {
	var objects []string

	// 1: catalog, 2: page tree, 3: font, then a page and its content per page.
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		widths))

	for i, page := range pages {
		contentID := 5 + 2*i
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentID))

		stream := pageStream(page)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func pageStream(page PDFPage) string {
	var b strings.Builder
	for _, r := range page.Rects {
		fmt.Fprintf(&b, "%.2f %.2f %.2f %.2f re f\n", r.X, r.Y, r.W, r.H)
	}
	for _, t := range page.Texts {
		fmt.Fprintf(&b, "BT /F1 %d Tf %.2f %.2f Td (%s) Tj ET\n", PDFFontSize, t.X, t.Y, escapePDFString(t.Text))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escapePDFString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(s)
}
