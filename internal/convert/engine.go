package convert

// Engine turns raw PDF bytes into a positioned text Document.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Extract parses the PDF and returns one Page per document page.
	Extract(data []byte) (*Document, error)
}

// newEngine returns the extraction engine for the given config name.
// "auto" resolves to the native engine; the fitz fallback is applied by
// the Converter when the native result carries no text.
func newEngine(name string) Engine {
	if name == "fitz" {
		return fitzEngine{}
	}
	return nativeEngine{}
}
