package format

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrMalformedOutput = errors.New("malformed formatted output")
)

// MissingFieldError reports a required field that is absent or null on a
// record that was expected to be clean.
type MissingFieldError struct {
	Family core.Family
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Family, e.Field)
}

// Is matches ErrMissingField.
func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// MalformedOutputError reports rendered text that fails validation.
// It always indicates a broken template, never bad input.
type MalformedOutputError struct {
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return "formatted text is malformed: " + e.Reason
}

// Is matches ErrMalformedOutput.
func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

// RecordError wraps a formatting failure with the index of the record.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
