package convert

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"sort"
	"strings"
)

// SpanGeometry is the positional record emitted for every span when
// building the semantic output. Coordinates are percentages of the page
// dimensions so callers can overlay them at any render size.
type SpanGeometry struct {
	Page    int        `json:"page"`
	Text    string     `json:"text"`
	Font    string     `json:"font"`
	Size    float64    `json:"size"`
	Bold    bool       `json:"bold"`
	Italic  bool       `json:"italic"`
	BBoxPct [4]float64 `json:"bbox_pct"`
}

var (
	urlRe         = regexp.MustCompile(`(https?://[^\s<>\)]+)`)
	orderedItemRe = regexp.MustCompile(`^(\d+[\.\)]|[a-zA-Z][\.\)])\s+`)
)

const semanticCSS = `:root{--base:16px;--lh:1.5;}
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Inter,Arial,sans-serif;line-height:var(--lh);margin:0;padding:2rem;background:#fff;color:#111;}
section{margin:0 auto;max-width:860px;padding:1.2rem 1rem;border-bottom:1px solid #eee;}
h1,h2,h3{line-height:1.2;margin:1.2rem 0 .6rem 0;font-weight:700}
h1{font-size:1.75rem}
h2{font-size:1.4rem}
h3{font-size:1.2rem}
p{margin:.5rem 0}
ul,ol{margin:.6rem 0 .6rem 1.2rem}
a{text-decoration:underline;word-break:break-word}`

// clusterHeadingSizes maps the largest font sizes in the document to
// heading levels. Sizes are bucketed at 0.5pt so near-identical sizes from
// different fonts land in the same bucket.
func clusterHeadingSizes(sizes []float64) map[string]float64 {
	if len(sizes) == 0 {
		return nil
	}
	seen := make(map[float64]bool)
	for _, s := range sizes {
		seen[math.Round(s*2)/2] = true
	}
	top := make([]float64, 0, len(seen))
	for s := range seen {
		top = append(top, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(top)))

	mapping := make(map[string]float64)
	levels := []string{"h1", "h2", "h3"}
	for i, lvl := range levels {
		if i < len(top) {
			mapping[lvl] = top[i]
		}
	}
	return mapping
}

// lineIsListItem reports whether a line looks like a list item and, if so,
// whether the list is ordered.
func lineIsListItem(text string) (item, ordered bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return false, false
	}
	switch []rune(s)[0] {
	case '•', '·', '◦', '-', '–', '*':
		return true, false
	}
	if orderedItemRe.MatchString(s) {
		return true, true
	}
	return false, false
}

// wrapLinks turns bare http(s) URLs into anchors. The input must already be
// HTML-escaped.
func wrapLinks(text string) string {
	return urlRe.ReplaceAllString(text, `<a href="$1" target="_blank" rel="noopener">$1</a>`)
}

// spanHTML renders one span as inline HTML, applying emphasis derived from
// the font name.
func spanHTML(sp Span, injectLinks bool) string {
	text := html.EscapeString(sp.Text)
	if strings.TrimSpace(text) == "" {
		return text
	}
	if injectLinks {
		text = wrapLinks(text)
	}
	if sp.Italic() {
		text = "<em>" + text + "</em>"
	}
	if sp.Bold() {
		text = "<strong>" + text + "</strong>"
	}
	return text
}

func pct(a, total float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(100*a/total*10000) / 10000
}

// buildSemantic produces the reflowable HTML body, its CSS and the span
// geometry records.
func buildSemantic(doc *Document, opts Options) (string, string, []SpanGeometry) {
	var hmap map[string]float64
	if opts.promoteHeadings() {
		var sizes []float64
		for _, p := range doc.Pages {
			for _, l := range p.Lines {
				for _, sp := range l.Spans {
					sizes = append(sizes, sp.Size)
				}
			}
		}
		hmap = clusterHeadingSizes(sizes)
	}

	var geom []SpanGeometry
	injectLinks := opts.injectLinks()

	var body []string
	for _, page := range doc.Pages {
		body = append(body, fmt.Sprintf(`<section data-page="%d">`, page.Number))
		openList := ""

		for _, line := range page.Lines {
			if len(line.Spans) == 0 {
				continue
			}
			for _, sp := range line.Spans {
				geom = append(geom, SpanGeometry{
					Page:   page.Number,
					Text:   sp.Text,
					Font:   sp.Font,
					Size:   sp.Size,
					Bold:   sp.Bold(),
					Italic: sp.Italic(),
					BBoxPct: [4]float64{
						pct(sp.X, page.Width),
						pct(sp.Y, page.Height),
						pct(sp.X+sp.W, page.Width),
						pct(sp.Y+sp.Size, page.Height),
					},
				})
			}

			tag := "p"
			if len(hmap) > 0 {
				max := line.MaxSize()
				switch {
				case hmap["h1"] != 0 && max >= hmap["h1"]:
					tag = "h1"
				case hmap["h2"] != 0 && max >= hmap["h2"]:
					tag = "h2"
				case hmap["h3"] != 0 && max >= hmap["h3"]:
					tag = "h3"
				}
			}

			var inner strings.Builder
			for _, sp := range line.Spans {
				inner.WriteString(spanHTML(sp, injectLinks))
			}

			if item, ordered := lineIsListItem(line.Text()); item && tag == "p" {
				desired := "ul"
				if ordered {
					desired = "ol"
				}
				if openList != "" && openList != desired {
					body = append(body, "</"+openList+">")
					openList = ""
				}
				if openList == "" {
					body = append(body, "<"+desired+">")
					openList = desired
				}
				body = append(body, "<li>"+inner.String()+"</li>")
				continue
			}
			if openList != "" {
				body = append(body, "</"+openList+">")
				openList = ""
			}

			body = append(body, "<"+tag+">"+inner.String()+"</"+tag+">")
		}

		if openList != "" {
			body = append(body, "</"+openList+">")
		}
		body = append(body, "</section>")
	}

	htmlBody := "<article>\n" + strings.Join(body, "\n") + "\n</article>"
	return htmlBody, semanticCSS, geom
}

// wrapHTMLDocument embeds a body and stylesheet into a standalone page.
func wrapHTMLDocument(body, css string) string {
	return "<!doctype html><html><head><meta charset='utf-8'><style>" + css + "</style></head><body>" + body + "</body></html>"
}
