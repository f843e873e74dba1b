package core

import (
	"fmt"
	"strings"
)

// Stage names one persisted snapshot of a family's corpus.
type Stage string

// Persisted stages, in pipeline order.
const (
	StageRaw                 Stage = "raw"
	StageCleaned             Stage = "cleaned"
	StageTrain               Stage = "train"
	StageValidation          Stage = "validation"
	StageFormattedTrain      Stage = "formatted_train"
	StageFormattedValidation Stage = "formatted_validation"
)

// Step names one executable pipeline step.
type Step string

// Pipeline steps.
const (
	StepFetch   Step = "fetch"
	StepClean   Step = "clean"
	StepSplit   Step = "split"
	StepFormat  Step = "format"
	StepInspect Step = "inspect"
)

// Steps returns every step in canonical execution order.
func Steps() []Step {
	return []Step{StepFetch, StepClean, StepSplit, StepFormat, StepInspect}
}

// ParseSteps validates step names and returns them deduplicated in canonical order.
func ParseSteps(names []string) ([]Step, error) {
	want := make(map[Step]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s := Step(n)
		switch s {
		case StepFetch, StepClean, StepSplit, StepFormat, StepInspect:
			want[s] = true
		default:
			return nil, fmt.Errorf("unknown pipeline step %q", n)
		}
	}
	var out []Step
	for _, s := range Steps() {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, nil
}
