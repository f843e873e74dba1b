package clean

import (
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sftprep/internal/langdetect"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// DefaultTargetLanguage is the ISO 639-1 code kept by default.
const DefaultTargetLanguage = "en"

// LanguageOptions configures FilterLanguage.
type LanguageOptions struct {
	// Detector must be safe for concurrent use when Workers > 1.
	Detector langdetect.Detector
	// Target is the ISO 639-1 code to keep. Empty means DefaultTargetLanguage.
	Target string
	// Workers bounds concurrent detections. Values below 1 mean sequential.
	Workers int
}

// FilterLanguage keeps records whose listed fields are all non-blank and all
// detected as the target language. Any detection failure drops the record.
// Output order matches input order regardless of Workers.
func FilterLanguage[R any](c core.Corpus[R], fields []core.Field[R], opts LanguageOptions) (core.Corpus[R], int) {
	target := strings.ToLower(opts.Target)
	if target == "" {
		target = DefaultTargetLanguage
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	keep := make([]bool, len(c.Records))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range c.Records {
		g.Go(func() error {
			keep[i] = inLanguage(r, fields, opts.Detector, target)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]R, 0, len(c.Records))
	for i, r := range c.Records {
		if keep[i] {
			out = append(out, r)
		}
	}
	return core.Corpus[R]{Family: c.Family, Records: out}, len(c.Records) - len(out)
}

func inLanguage[R any](r R, fields []core.Field[R], d langdetect.Detector, target string) (ok bool) {
	if d == nil {
		return false
	}
	// A panicking detector counts as a failed detection.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	for _, f := range fields {
		v := f.Get(r)
		if core.IsBlank(v) {
			return false
		}
		lang, err := d.Detect(strings.TrimSpace(*v))
		if err != nil || strings.ToLower(lang) != target {
			return false
		}
	}
	return true
}
