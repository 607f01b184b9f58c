package brain

import (
	"errors"
	"fmt"
)

// ErrMalformedClassification marks classifier output that is not JSON or does
// not match the expected schema after defaulting.
var ErrMalformedClassification = errors.New("malformed classification")

type ClassificationErrorKind string

const (
	ClassificationTransport ClassificationErrorKind = "transport"
	ClassificationMalformed ClassificationErrorKind = "malformed"
)

// ClassificationError is a hard failure of one classifier call.
type ClassificationError struct {
	Kind   ClassificationErrorKind
	Schema string
	Raw    string // raw model output, empty for transport failures
	Err    error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s (%s): %v", e.Schema, e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

func malformed(schema, raw string, format string, args ...any) *ClassificationError {
	return &ClassificationError{
		Kind:   ClassificationMalformed,
		Schema: schema,
		Raw:    raw,
		Err:    fmt.Errorf("%w: %s", ErrMalformedClassification, fmt.Sprintf(format, args...)),
	}
}

// PassError is a hard failure that aborts a triage pass and is surfaced to
// the webhook sender.
type PassError struct {
	Stage string
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("triage pass failed at %s: %v", e.Stage, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}
