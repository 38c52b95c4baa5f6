package convert

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// nativeEngine extracts positioned text through the pure-Go text layer
// parser. Only the embedded text layer is read; scanned (image-only) pages
// come back empty and are left to the fitz fallback.
type nativeEngine struct{}

func (nativeEngine) Name() string { return "native" }

func (nativeEngine) Extract(data []byte) (doc *Document, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc = &Document{}
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		p := r.Page(pageNum)
		page := Page{Number: pageNum, Width: 612, Height: 792}
		if p.V.IsNull() {
			doc.Pages = append(doc.Pages, page)
			continue
		}
		page.Width, page.Height = mediaBoxSize(p)
		page.Lines = assembleLines(p.Content().Text, page.Height)
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// mediaBoxSize resolves the page dimensions, walking up the page tree for
// inherited MediaBox entries. Falls back to US Letter.
func mediaBoxSize(p pdf.Page) (float64, float64) {
	node := p.V
	box := node.Key("MediaBox")
	for box.IsNull() {
		node = node.Key("Parent")
		if node.IsNull() {
			break
		}
		box = node.Key("MediaBox")
	}
	if box.IsNull() || box.Len() < 4 {
		return 612, 792
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return 612, 792
	}
	return w, h
}

// assembleLines groups raw text fragments into lines by Y coordinate, sorts
// each line left to right and merges same-styled neighbours into spans.
func assembleLines(frags []pdf.Text, pageHeight float64) []Line {
	if len(frags) == 0 {
		return nil
	}

	type rawLine struct {
		y     float64
		frags []pdf.Text
	}

	tol := averageFontSize(frags) * 0.5
	if tol < 2 {
		tol = 2
	}

	var lines []rawLine
	for _, f := range frags {
		found := false
		for i := range lines {
			if math.Abs(lines[i].y-f.Y) < tol {
				lines[i].frags = append(lines[i].frags, f)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, rawLine{y: f.Y, frags: []pdf.Text{f}})
		}
	}

	// PDF y=0 is the bottom of the page; read top-down.
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		sort.SliceStable(l.frags, func(i, j int) bool { return l.frags[i].X < l.frags[j].X })
		line := Line{Spans: mergeFragments(l.frags, pageHeight)}
		if strings.TrimSpace(line.Text()) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// mergeFragments concatenates consecutive fragments sharing font and size
// into a single span, inserting a space where the horizontal gap is wide
// enough to separate words.
func mergeFragments(frags []pdf.Text, pageHeight float64) []Span {
	var spans []Span
	for i, f := range frags {
		if i > 0 {
			prev := &spans[len(spans)-1]
			last := frags[i-1]
			gap := f.X - (last.X + last.W)
			avg := (f.FontSize + last.FontSize) / 2
			if avg < 1 {
				avg = 12
			}
			sep := ""
			if gap > avg*0.3 {
				sep = " "
			}
			if prev.Font == f.Font && prev.Size == f.FontSize {
				prev.Text += sep + f.S
				prev.W = f.X + f.W - prev.X
				continue
			}
			if sep != "" {
				prev.Text += sep
			}
		}
		spans = append(spans, Span{
			Text: f.S,
			Font: f.Font,
			Size: f.FontSize,
			X:    f.X,
			Y:    pageHeight - f.Y,
			W:    f.W,
		})
	}
	return spans
}

func averageFontSize(frags []pdf.Text) float64 {
	if len(frags) == 0 {
		return 12
	}
	sum := 0.0
	for _, f := range frags {
		sum += f.FontSize
	}
	return sum / float64(len(frags))
}
