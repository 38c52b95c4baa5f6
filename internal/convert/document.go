package convert

import "strings"

// Span is a styled run of text with its position on the page.
// Coordinates are in points with the origin at the top-left of the page.
type Span struct {
	Text string
	Font string
	Size float64
	X    float64
	Y    float64
	W    float64
}

// Bold reports whether the span's font name indicates a bold face.
func (s Span) Bold() bool {
	n := strings.ToLower(s.Font)
	return strings.Contains(n, "bold") || strings.Contains(n, "semibold") || strings.Contains(n, "black")
}

// Italic reports whether the span's font name indicates an italic face.
func (s Span) Italic() bool {
	n := strings.ToLower(s.Font)
	return strings.Contains(n, "italic") || strings.Contains(n, "oblique") || strings.Contains(n, "ital")
}

// Line is a horizontal group of spans, ordered left to right.
type Line struct {
	Spans []Span
}

// Text returns the concatenated text of all spans in the line.
func (l Line) Text() string {
	var sb strings.Builder
	for _, sp := range l.Spans {
		sb.WriteString(sp.Text)
	}
	return sb.String()
}

// MaxSize returns the largest font size appearing in the line.
func (l Line) MaxSize() float64 {
	max := 0.0
	for _, sp := range l.Spans {
		if sp.Size > max {
			max = sp.Size
		}
	}
	return max
}

// Page holds the extracted lines of a single page, top to bottom.
type Page struct {
	Number int // 1-based
	Width  float64
	Height float64
	Lines  []Line
}

// Document is the extraction result all HTML builders consume.
type Document struct {
	Pages []Page
}

// SpanCount returns the number of non-blank spans across all pages.
func (d *Document) SpanCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			for _, sp := range l.Spans {
				if strings.TrimSpace(sp.Text) != "" {
					n++
				}
			}
		}
	}
	return n
}
