package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf2html/internal/convert"
	"pdf2html/internal/fetch"
	u "pdf2html/internal/utils"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return s.data, s.err
}

type stubConverter struct {
	res *convert.Result
	err error
}

func (s stubConverter) Convert(ctx context.Context, data []byte, opts convert.Options) (*convert.Result, error) {
	return s.res, s.err
}

func testApp(f Fetcher, c Converter) *fiber.App {
	var cfg u.Config
	cfg.Fetch.TimeoutSecs = 5
	cfg.Fetch.MaxPDFBytes = 1 << 20

	svc := &Pdf2HtmlService{Config: &cfg, Fetcher: f, Converter: c}
	app := fiber.New()
	app.Get("/health", HandleHealth)
	app.Post("/pdf2html", svc.HandleConversion)
	return app
}

func postJSON(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/pdf2html", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func okConverter() stubConverter {
	return stubConverter{res: &convert.Result{
		Pages:        1,
		HTML:         "<!doctype html><html><body><p>hi</p></body></html>",
		HTMLSemantic: "<!doctype html><html><body><p>hi</p></body></html>",
		CSSSemantic:  "p{margin:0}",
	}}
}

func TestHandleHealth(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"status":"ok"}`, string(raw))
	}
}

func TestHandleConversion_SuccessFromURL(t *testing.T) {
	app := testApp(stubFetcher{data: []byte("%PDF-")}, okConverter())

	status, body := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf","request_id":"req-1"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "req-1", body["request_id"])
	assert.NotEmpty(t, body["html"])
	assert.Equal(t, "upload.pdf", body["filename"])
	metrics, ok := body["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), metrics["pages"])
}

func TestHandleConversion_SuccessFromBase64(t *testing.T) {
	app := testApp(stubFetcher{err: errors.New("fetcher must not be called")}, okConverter())

	b64 := base64.StdEncoding.EncodeToString([]byte("%PDF- fake"))
	status, body := postJSON(t, app, `{"pdf_b64":"`+b64+`","request_id":"r2","filename":"mine.pdf"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "r2", body["request_id"])
	assert.Equal(t, "mine.pdf", body["filename"])
}

func TestHandleConversion_RequestIDEchoedVerbatim(t *testing.T) {
	app := testApp(stubFetcher{data: []byte("x")}, okConverter())

	for _, id := range []string{"", "héllo-☃-id", "  spaced  "} {
		payload, _ := json.Marshal(map[string]string{"pdf_url": "https://example.com/a.pdf", "request_id": id})
		status, body := postJSON(t, app, string(payload))
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, id, body["request_id"])
	}
}

func TestHandleConversion_InvalidJSON(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	status, body := postJSON(t, app, `{"pdf_url": nope}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestHandleConversion_MissingSource(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	status, body := postJSON(t, app, `{"request_id":"r3"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "r3", body["request_id"])
	assert.Contains(t, body["error"], "pdf_b64 or pdf_url")
}

func TestHandleConversion_InvalidBase64(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	status, body := postJSON(t, app, `{"pdf_b64":"!!not base64!!","request_id":"r4"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "r4", body["request_id"])
	assert.Contains(t, body["error"], "base64")
}

func TestHandleConversion_InvalidURLScheme(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	status, _ := postJSON(t, app, `{"pdf_url":"ftp://example.com/a.pdf"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleConversion_InvalidMode(t *testing.T) {
	app := testApp(stubFetcher{}, okConverter())

	status, body := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf","request_id":"r5","options":{"mode":"markdown"}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "r5", body["request_id"])
}

func TestHandleConversion_FetchFailureIsBadGateway(t *testing.T) {
	ferr := &fetch.FetchError{URL: "https://example.com/a.pdf", Err: errors.New("dial tcp: no route to host")}
	app := testApp(stubFetcher{err: ferr}, okConverter())

	status, body := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf","request_id":"r6"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "r6", body["request_id"])
	assert.NotEmpty(t, body["error"])
}

func TestHandleConversion_UpstreamStatusIsBadGateway(t *testing.T) {
	ferr := &fetch.FetchError{URL: "https://example.com/a.pdf", StatusCode: 404, Err: errors.New("unexpected upstream status 404")}
	app := testApp(stubFetcher{err: ferr}, okConverter())

	status, body := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, body["error"], "Not Found")
}

func TestHandleConversion_TooLargeIs413(t *testing.T) {
	ferr := &fetch.FetchError{URL: "https://example.com/a.pdf", Err: fetch.ErrTooLarge}
	app := testApp(stubFetcher{err: ferr}, okConverter())

	status, _ := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf"}`)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
}

func TestHandleConversion_FetchTimeoutIs504(t *testing.T) {
	ferr := &fetch.FetchError{URL: "https://example.com/a.pdf", Err: context.DeadlineExceeded}
	app := testApp(stubFetcher{err: ferr}, okConverter())

	status, _ := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf"}`)
	assert.Equal(t, fiber.StatusGatewayTimeout, status)
}

func TestHandleConversion_ConversionFailureIs422(t *testing.T) {
	cerr := &convert.ConversionError{Stage: "validate", Err: convert.ErrNotPDF}
	app := testApp(stubFetcher{data: []byte("not-a-pdf")}, stubConverter{err: cerr})

	status, body := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf","request_id":"r7"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "r7", body["request_id"])
	assert.Contains(t, body["error"], "Conversion failed")
}

func TestHandleConversion_UnknownErrorIs500(t *testing.T) {
	app := testApp(stubFetcher{data: []byte("x")}, stubConverter{err: errors.New("boom")})

	status, _ := postJSON(t, app, `{"pdf_url":"https://example.com/a.pdf"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestHandleConversion_OversizedBase64Is413(t *testing.T) {
	var cfg u.Config
	cfg.Fetch.TimeoutSecs = 5
	cfg.Fetch.MaxPDFBytes = 16

	svc := &Pdf2HtmlService{Config: &cfg, Fetcher: stubFetcher{}, Converter: okConverter()}
	app := fiber.New()
	app.Post("/pdf2html", svc.HandleConversion)

	b64 := base64.StdEncoding.EncodeToString(make([]byte, 64))
	req := httptest.NewRequest("POST", "/pdf2html", strings.NewReader(`{"pdf_b64":"`+b64+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}
