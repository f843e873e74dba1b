// Package langdetect wraps natural-language identification behind a small
// deterministic interface.
package langdetect

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// Detection failures. Callers that filter on language treat both as
// "not the target language".
var (
	ErrTooShort     = errors.New("text too short for language detection")
	ErrUndetermined = errors.New("language could not be determined")
)

// DefaultMinLength is the minimum rune count accepted by Whatlang.
const DefaultMinLength = 3

// Detector identifies the language of a text and returns its ISO 639-1 code.
// Implementations must be deterministic.
type Detector interface {
	Detect(text string) (string, error)
}

// Whatlang detects languages with trigram profiles. It has no random state,
// so repeated runs over the same input return identical results.
type Whatlang struct {
	// MinLength is the minimum number of runes after trimming.
	MinLength int
	// Reliable rejects detections the library marks as unreliable.
	Reliable bool
}

// NewWhatlang creates a Whatlang detector with the default minimum length.
func NewWhatlang() *Whatlang {
	return &Whatlang{MinLength: DefaultMinLength}
}

// Detect returns the lower-case ISO 639-1 code for text.
func (w *Whatlang) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	minLen := w.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	if utf8.RuneCountInString(text) < minLen {
		return "", ErrTooShort
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return "", ErrUndetermined
	}
	if w.Reliable && !info.IsReliable() {
		return "", fmt.Errorf("%w: confidence %.2f", ErrUndetermined, info.Confidence)
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetermined
	}
	return strings.ToLower(code), nil
}

// Func adapts a plain function to the Detector interface.
type Func func(text string) (string, error)

// Detect calls f(text).
func (f Func) Detect(text string) (string, error) { return f(text) }

var _ Detector = (*Whatlang)(nil)
