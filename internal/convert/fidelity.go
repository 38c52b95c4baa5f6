package convert

import (
	"fmt"
	"html"
	"strings"
)

const fidelityCSS = `body{background:#f6f7fb;margin:0;padding:12px}
.page{position:relative;margin:16px auto;background:#fff;box-shadow:0 1px 3px rgba(0,0,0,.06),0 1px 2px rgba(0,0,0,.04)}
.page .s{position:absolute;white-space:pre;line-height:1}`

// buildFidelity produces a layout-preserving rendition: every span is
// absolutely positioned inside a page-sized container.
func buildFidelity(doc *Document) (string, string) {
	var pages []string
	for _, page := range doc.Pages {
		var bits []string
		bits = append(bits, fmt.Sprintf(`<div class="page" data-page="%d" style="width:%gpx;height:%gpx">`, page.Number, page.Width, page.Height))
		for _, line := range page.Lines {
			for _, sp := range line.Spans {
				if strings.TrimSpace(sp.Text) == "" {
					continue
				}
				weight := "400"
				if sp.Bold() {
					weight = "700"
				}
				style := "normal"
				if sp.Italic() {
					style = "italic"
				}
				width := sp.W
				if width < 0 {
					width = 0
				}
				bits = append(bits, fmt.Sprintf(
					`<span class="s" style="left:%gpx;top:%gpx;width:%gpx;font-size:%gpx;font-weight:%s;font-style:%s;">%s</span>`,
					sp.X, sp.Y, width, sp.Size, weight, style, html.EscapeString(sp.Text)))
			}
		}
		bits = append(bits, "</div>")
		pages = append(pages, strings.Join(bits, "\n"))
	}

	body := "<div class='doc'>\n" + strings.Join(pages, "\n") + "\n</div>"
	return body, fidelityCSS
}
