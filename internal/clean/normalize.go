package clean

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// UnicodeForm selects an optional Unicode normalization applied after trimming.
type UnicodeForm string

// Supported forms. The zero value disables Unicode normalization.
const (
	FormNone UnicodeForm = ""
	FormNFC  UnicodeForm = "NFC"
	FormNFKC UnicodeForm = "NFKC"
)

// ParseUnicodeForm validates a configured form name.
func ParseUnicodeForm(s string) (UnicodeForm, error) {
	switch f := UnicodeForm(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormNone, FormNFC, FormNFKC:
		return f, nil
	default:
		return FormNone, fmt.Errorf("unsupported unicode form %q (want NFC, NFKC or empty)", s)
	}
}

// Normalize returns r with every listed non-nil field trimmed of surrounding
// whitespace. Nil fields are left as they are.
func Normalize[R any](r R, fields []core.Field[R]) R {
	return NormalizeForm(r, fields, FormNone)
}

// NormalizeForm trims like Normalize and then applies the Unicode form.
// Trimming runs again after composition so the result stays idempotent.
func NormalizeForm[R any](r R, fields []core.Field[R], form UnicodeForm) R {
	for _, f := range fields {
		v := f.Get(r)
		if v == nil {
			continue
		}
		s := strings.TrimSpace(*v)
		switch form {
		case FormNFC:
			s = strings.TrimSpace(norm.NFC.String(s))
		case FormNFKC:
			s = strings.TrimSpace(norm.NFKC.String(s))
		}
		r = f.Set(r, &s)
	}
	return r
}

// NormalizeCorpus applies NormalizeForm to every record.
func NormalizeCorpus[R any](c core.Corpus[R], fields []core.Field[R], form UnicodeForm) core.Corpus[R] {
	return core.Map(c, func(r R) R { return NormalizeForm(r, fields, form) })
}
