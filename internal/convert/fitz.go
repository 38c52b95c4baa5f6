package convert

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// fitzEngine extracts text through MuPDF. It handles documents the native
// parser cannot (broken xref tables, exotic encodings), at the cost of
// losing per-span font metrics: lines come back as plain text, so synthetic
// positions and a default size are attached.
type fitzEngine struct{}

const (
	fitzFontSize = 12.0
	fitzLeading  = 14.0
	fitzMarginX  = 36.0
	fitzMarginY  = 48.0
)

func (fitzEngine) Name() string { return "fitz" }

func (fitzEngine) Extract(data []byte) (*Document, error) {
	f, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("mupdf open: %w", err)
	}
	defer f.Close()

	doc := &Document{}
	for n := 0; n < f.NumPage(); n++ {
		page := Page{Number: n + 1, Width: 612, Height: 792}
		if bound, err := f.Bound(n); err == nil && bound.Dx() > 0 && bound.Dy() > 0 {
			page.Width = float64(bound.Dx())
			page.Height = float64(bound.Dy())
		}

		text, err := f.Text(n)
		if err != nil {
			return nil, fmt.Errorf("mupdf text page %d: %w", n+1, err)
		}

		y := fitzMarginY
		for _, raw := range strings.Split(text, "\n") {
			raw = strings.TrimRight(raw, " \t\r")
			if strings.TrimSpace(raw) == "" {
				y += fitzLeading
				continue
			}
			page.Lines = append(page.Lines, Line{Spans: []Span{{
				Text: raw,
				Size: fitzFontSize,
				X:    fitzMarginX,
				Y:    y,
				W:    float64(len([]rune(raw))) * fitzFontSize * 0.5,
			}}})
			y += fitzLeading
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}
