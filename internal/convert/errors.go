package convert

import (
	"errors"
	"fmt"
)

// ErrNotPDF signals that the input bytes are not a renderable PDF document.
var ErrNotPDF = errors.New("input is not a valid PDF")

// ErrTooManyPages signals that the document exceeds the configured page cap.
var ErrTooManyPages = errors.New("document exceeds page limit")

// ConversionError wraps any failure while turning PDF bytes into HTML.
type ConversionError struct {
	Stage string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert: %s: %v", e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func conversionErr(stage string, err error) error {
	return &ConversionError{Stage: stage, Err: err}
}
