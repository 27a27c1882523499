package pdfparser

import (
	"sort"
	"strings"
)

const (
	// lineTolerance is the baseline distance within which glyphs share a line.
	lineTolerance = 2.0

	// rulingThickness is the maximum width of a rectangle drawn as a rule.
	rulingThickness = 2.0

	// positionTolerance merges rules drawn at almost the same coordinate.
	positionTolerance = 1.0
)

// =============================================================================
// PAGE LAYOUT
// =============================================================================

// Glyph is one positioned piece of text as emitted by the content stream.
// X and Y are the baseline origin in PDF user space (Y grows upwards).
type Glyph struct {
	S        string
	X, Y     float64
	W        float64
	FontSize float64
}

// Rect is a filled or stroked rectangle.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Word is a run of glyphs without a space or a visible gap between them.
type Word struct {
	Text   string
	X0, X1 float64
	Y      float64
}

// Line is a set of words sharing a baseline, ordered left to right.
type Line struct {
	Y     float64
	Words []Word
}

// Text joins the words of the line with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, word := range l.Words {
		parts[i] = word.Text
	}
	return strings.Join(parts, " ")
}

// PageLayout is the positioned content of one page.
type PageLayout struct {
	Lines []Line

	// Vertical and Horizontal hold the distinct x and y positions of ruling
	// lines, sorted ascending.
	Vertical   []float64
	Horizontal []float64
}

// NewPageLayout groups glyphs into lines and words and keeps the thin
// rectangles as ruling lines.
func NewPageLayout(glyphs []Glyph, rects []Rect) PageLayout {
	layout := PageLayout{Lines: buildLines(glyphs)}

	var vertical, horizontal []float64
	for _, r := range rects {
		x0, x1 := ordered(r.X0, r.X1)
		y0, y1 := ordered(r.Y0, r.Y1)
		width, height := x1-x0, y1-y0

		switch {
		case width <= rulingThickness && height > width:
			vertical = append(vertical, (x0+x1)/2)
		case height <= rulingThickness && width > height:
			horizontal = append(horizontal, (y0+y1)/2)
		}
	}

	layout.Vertical = distinctPositions(vertical)
	layout.Horizontal = distinctPositions(horizontal)
	return layout
}

// buildLines clusters glyphs by baseline, top of the page first, and splits
// each line into words at spaces and at horizontal gaps.
func buildLines(glyphs []Glyph) []Line {
	sorted := make([]Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines []Line
	start := 0
	for start < len(sorted) {
		end := start + 1
		for end < len(sorted) && sorted[start].Y-sorted[end].Y <= lineTolerance {
			end++
		}

		line := sorted[start:end]
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].X < line[j].X
		})

		if words := buildWords(line); len(words) > 0 {
			lines = append(lines, Line{Y: sorted[start].Y, Words: words})
		}
		start = end
	}

	return lines
}

func buildWords(glyphs []Glyph) []Word {
	var (
		words   []Word
		current strings.Builder
		word    Word
	)

	flush := func() {
		if current.Len() > 0 {
			word.Text = current.String()
			words = append(words, word)
		}
		current.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		if current.Len() > 0 && g.X-word.X1 > wordGap(g) {
			flush()
		}
		if current.Len() == 0 {
			word = Word{X0: g.X, Y: g.Y}
		}

		current.WriteString(g.S)
		if end := g.X + g.W; end > word.X1 {
			word.X1 = end
		}
	}
	flush()

	return words
}

func wordGap(g Glyph) float64 {
	if gap := g.FontSize * 0.25; gap > 1 {
		return gap
	}
	return 1
}

// =============================================================================
// TABLE DETECTION
// =============================================================================

// Table returns the rows of the ruled table on the page, or nil when the page
// does not carry at least two vertical and two horizontal rules.
//
// The table spans the outermost rules. Each text line inside it is a row;
// words are assigned to the column whose rules enclose their centre.
func (p PageLayout) Table() [][]string {
	if len(p.Vertical) < 2 || len(p.Horizontal) < 2 {
		return nil
	}

	top := p.Horizontal[len(p.Horizontal)-1]
	bottom := p.Horizontal[0]
	columns := len(p.Vertical) - 1

	var rows [][]string
	for _, line := range p.Lines {
		if line.Y < bottom || line.Y > top {
			continue
		}

		cells := make([][]string, columns)
		for _, word := range line.Words {
			if col := p.column((word.X0 + word.X1) / 2); col >= 0 {
				cells[col] = append(cells[col], word.Text)
			}
		}

		row := make([]string, columns)
		for i, parts := range cells {
			row[i] = strings.Join(parts, " ")
		}
		rows = append(rows, row)
	}

	return rows
}

func (p PageLayout) column(x float64) int {
	for i := 0; i < len(p.Vertical)-1; i++ {
		if x >= p.Vertical[i] && x < p.Vertical[i+1] {
			return i
		}
	}
	return -1
}

// =============================================================================
// HELPERS
// =============================================================================

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

func distinctPositions(positions []float64) []float64 {
	if len(positions) == 0 {
		return nil
	}

	sort.Float64s(positions)
	out := []float64{positions[0]}
	for _, pos := range positions[1:] {
		if pos-out[len(out)-1] > positionTolerance {
			out = append(out, pos)
		}
	}
	return out
}
