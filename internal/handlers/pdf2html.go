package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"pdf2html/internal/convert"
	"pdf2html/internal/fetch"
	u "pdf2html/internal/utils"
)

// defaultFilename mirrors what the endpoint reports when the caller does
// not name the document.
const defaultFilename = "upload.pdf"

// Fetcher retrieves a document's bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Converter turns PDF bytes into HTML.
type Converter interface {
	Convert(ctx context.Context, data []byte, opts convert.Options) (*convert.Result, error)
}

// ConvertRequest is the JSON body of POST /pdf2html. Exactly one of PDFURL
// and PDFB64 must be set; PDFB64 wins when both are present.
type ConvertRequest struct {
	RequestID string          `json:"request_id"`
	Filename  string          `json:"filename"`
	PDFURL    string          `json:"pdf_url"`
	PDFB64    string          `json:"pdf_b64"`
	Options   convert.Options `json:"options"`
}

// Metrics carries per-conversion counters back to the caller.
type Metrics struct {
	Pages int `json:"pages"`
}

// ConvertResponse is the success body of POST /pdf2html. RequestID is
// echoed verbatim, empty string included.
type ConvertResponse struct {
	RequestID string  `json:"request_id"`
	Filename  string  `json:"filename"`
	HTML      string  `json:"html"`
	Metrics   Metrics `json:"metrics"`

	HTMLSemantic string                 `json:"html_semantic,omitempty"`
	CSSSemantic  string                 `json:"css_semantic,omitempty"`
	Geom         []convert.SpanGeometry `json:"geom,omitempty"`

	HTMLFidelity string `json:"html_fidelity,omitempty"`
	CSSFidelity  string `json:"css_fidelity,omitempty"`

	ZipB64 string `json:"zip_b64,omitempty"`
}

// Pdf2HtmlService bundles the conversion endpoint's dependencies.
type Pdf2HtmlService struct {
	Config    *u.Config
	Fetcher   Fetcher
	Converter Converter
}

// NewPdf2HtmlService wires the service with the real fetcher and converter.
func NewPdf2HtmlService(cfg u.Config) *Pdf2HtmlService {
	return &Pdf2HtmlService{
		Config:    &cfg,
		Fetcher:   fetch.New(cfg),
		Converter: convert.New(cfg),
	}
}

// HandleHealth is the liveness probe. Always 200, no side effects.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleConversion implements POST /pdf2html: load the PDF bytes (inline
// base64 or remote URL), run the conversion pipeline and return the HTML.
func (svc *Pdf2HtmlService) HandleConversion(c *fiber.Ctx) error {
	var req ConvertRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "", "Invalid JSON body")
	}
	if err := req.Options.Validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, req.RequestID, err.Error())
	}

	data, status, msg := svc.loadPDFBytes(c.Context(), &req)
	if status != 0 {
		return errorJSON(c, status, req.RequestID, msg)
	}

	res, err := svc.Converter.Convert(c.Context(), data, req.Options)
	if err != nil {
		status, msg := conversionFailure(err)
		return errorJSON(c, status, req.RequestID, msg)
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultFilename
	}

	requestID := c.Get("X-Request-ID")
	u.Info("PDF converted", "filename", filename, "pages", res.Pages, "mode", req.Options.Mode, "request_id", requestID)

	return c.JSON(ConvertResponse{
		RequestID:    req.RequestID,
		Filename:     filename,
		HTML:         res.HTML,
		Metrics:      Metrics{Pages: res.Pages},
		HTMLSemantic: res.HTMLSemantic,
		CSSSemantic:  res.CSSSemantic,
		Geom:         res.Geometry,
		HTMLFidelity: res.HTMLFidelity,
		CSSFidelity:  res.CSSFidelity,
		ZipB64:       res.ZipB64,
	})
}

// loadPDFBytes resolves the document source. On failure the returned status
// is non-zero and msg is the client-facing error.
func (svc *Pdf2HtmlService) loadPDFBytes(reqCtx context.Context, req *ConvertRequest) (data []byte, status int, msg string) {
	if req.PDFB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.PDFB64)
		if err != nil {
			return nil, fiber.StatusBadRequest, "Invalid base64: " + err.Error()
		}
		if len(decoded) > svc.Config.Fetch.MaxPDFBytes {
			return nil, fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size"
		}
		return decoded, 0, ""
	}

	if req.PDFURL == "" {
		return nil, fiber.StatusBadRequest, "Provide pdf_b64 or pdf_url"
	}
	if err := fetch.ValidateURL(req.PDFURL); err != nil {
		return nil, fiber.StatusBadRequest, err.Error()
	}

	ctx, cancel := context.WithTimeout(reqCtx, svc.Config.FetchTimeout())
	defer cancel()

	fetched, err := svc.Fetcher.Fetch(ctx, req.PDFURL)
	if err != nil {
		status, msg := svc.fetchFailure(req.PDFURL, err)
		return nil, status, msg
	}
	return fetched, 0, ""
}

func (svc *Pdf2HtmlService) fetchFailure(url string, err error) (int, string) {
	switch {
	case errors.Is(err, fetch.ErrTooLarge):
		u.Warn("PDF download exceeds size cap", "url", url, "max_bytes", svc.Config.Fetch.MaxPDFBytes)
		return fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size"
	case errors.Is(err, context.DeadlineExceeded):
		u.Error("PDF download timed out", "url", url, "timeout_secs", svc.Config.Fetch.TimeoutSecs)
		return fiber.StatusGatewayTimeout, "Fetching the PDF took too long"
	default:
		var fe *fetch.FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			u.Error("Upstream returned non-success status", "url", url, "status", fe.StatusCode)
			return fiber.StatusBadGateway, "Upstream fetch failed: " + http.StatusText(fe.StatusCode)
		}
		u.Error("PDF download failed", "url", url, "error", err.Error())
		return fiber.StatusBadGateway, "Could not fetch the PDF"
	}
}

func conversionFailure(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fiber.StatusGatewayTimeout, "Conversion aborted"
	}

	var ce *convert.ConversionError
	if errors.As(err, &ce) {
		u.Error("PDF conversion failed", "stage", ce.Stage, "error", ce.Err.Error())
		return fiber.StatusUnprocessableEntity, "Conversion failed: " + ce.Err.Error()
	}

	u.Error("PDF conversion failed", "error", err.Error())
	return fiber.StatusInternalServerError, "Conversion failed"
}

// errorJSON writes the endpoint's error shape: the request_id is preserved
// so callers can correlate failures.
func errorJSON(c *fiber.Ctx, status int, requestID, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"request_id": requestID,
		"error":      msg,
	})
}
