package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	u "pdf2html/internal/utils"
)

// Rendering modes.
const (
	ModeSemantic = "semantic"
	ModeFidelity = "fidelity"
	ModeBoth     = "both"
)

// Options controls which outputs a conversion produces. The JSON field
// names match the wire format of the conversion endpoint.
type Options struct {
	Mode            string `json:"mode"`
	InjectLinks     *bool  `json:"injectLinks"`
	PromoteHeadings *bool  `json:"promoteHeadings"`
	ReturnZipB64    bool   `json:"returnZipB64"`
}

func (o Options) mode() string {
	if o.Mode == "" {
		return ModeBoth
	}
	return o.Mode
}

func (o Options) injectLinks() bool     { return o.InjectLinks == nil || *o.InjectLinks }
func (o Options) promoteHeadings() bool { return o.PromoteHeadings == nil || *o.PromoteHeadings }

// Validate rejects unknown modes. Called at the request boundary so the
// client gets a 4xx rather than a conversion failure.
func (o Options) Validate() error {
	switch o.mode() {
	case ModeSemantic, ModeFidelity, ModeBoth:
		return nil
	}
	return fmt.Errorf("invalid mode %q: must be semantic, fidelity or both", o.Mode)
}

// Result holds every output of a conversion. Fields for modes that were not
// requested stay empty.
type Result struct {
	Pages int

	// HTML is the primary output for the requested mode: the fidelity
	// document when mode is "fidelity", the semantic document otherwise.
	HTML string

	HTMLSemantic string
	CSSSemantic  string
	Geometry     []SpanGeometry

	HTMLFidelity string
	CSSFidelity  string

	ZipB64 string
}

// Converter runs the PDF→HTML pipeline: validate, extract, build.
// Stateless and safe for concurrent use.
type Converter struct {
	engine   string
	maxPages int
}

// New builds a Converter from the service configuration.
func New(cfg u.Config) *Converter {
	return &Converter{engine: cfg.PDF.Engine, maxPages: cfg.PDF.MaxPages}
}

// Convert turns PDF bytes into HTML according to opts. All failures come
// back as *ConversionError; ctx cancellation is honored between stages.
func (c *Converter) Convert(ctx context.Context, data []byte, opts Options) (*Result, error) {
	pages, err := pageCount(data)
	if err != nil {
		return nil, conversionErr("validate", fmt.Errorf("%w: %v", ErrNotPDF, err))
	}
	if c.maxPages > 0 && pages > c.maxPages {
		return nil, conversionErr("validate", fmt.Errorf("%w: %d pages (limit %d)", ErrTooManyPages, pages, c.maxPages))
	}
	if err := ctx.Err(); err != nil {
		return nil, conversionErr("extract", err)
	}

	doc, err := c.extract(data)
	if err != nil {
		return nil, conversionErr("extract", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, conversionErr("build", err)
	}

	res := &Result{Pages: pages}
	mode := opts.mode()

	if mode == ModeSemantic || mode == ModeBoth {
		body, css, geom := buildSemantic(doc, opts)
		res.HTMLSemantic = wrapHTMLDocument(body, css)
		res.CSSSemantic = css
		res.Geometry = geom
	}
	if mode == ModeFidelity || mode == ModeBoth {
		body, css := buildFidelity(doc)
		res.HTMLFidelity = wrapHTMLDocument(body, css)
		res.CSSFidelity = css
	}

	if mode == ModeFidelity {
		res.HTML = res.HTMLFidelity
	} else {
		res.HTML = res.HTMLSemantic
	}

	if opts.ReturnZipB64 {
		files := make(map[string]string)
		if res.HTMLSemantic != "" {
			files["semantic.html"] = res.HTMLSemantic
			files["semantic.css"] = res.CSSSemantic
		}
		if res.HTMLFidelity != "" {
			files["fidelity.html"] = res.HTMLFidelity
			files["fidelity.css"] = res.CSSFidelity
		}
		zipped, err := zipBase64(files)
		if err != nil {
			return nil, conversionErr("zip", err)
		}
		res.ZipB64 = zipped
	}

	return res, nil
}

// extract runs the configured engine. With engine "auto" a document whose
// text layer comes back empty is retried through the fitz fallback, which
// copes with files the native parser cannot read.
func (c *Converter) extract(data []byte) (*Document, error) {
	eng := newEngine(c.engine)
	doc, err := eng.Extract(data)
	if c.engine != "auto" && c.engine != "" {
		return doc, err
	}
	if err == nil && doc.SpanCount() > 0 {
		return doc, nil
	}
	if err != nil {
		u.Warn("native extraction failed, falling back to fitz", "error", err.Error())
	} else {
		u.Debug("native extraction found no text, falling back to fitz")
	}
	return fitzEngine{}.Extract(data)
}

// pageCount validates the PDF (relaxed mode) and returns its page count.
func pageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
