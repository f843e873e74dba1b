// Package format renders cleaned records into the single-field
// "prompt + reasoning + answer" text used for supervised fine-tuning.
package format

import (
	"strings"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Tags every rendered text must contain.
const (
	ReasoningOpen  = "<reasoning>"
	ReasoningClose = "</reasoning>"
	AnswerOpen     = "<answer>"
	AnswerClose    = "</answer>"
)

// AnswerPlaceholder fills the answer block for records that carry no answer.
const AnswerPlaceholder = "See reasoning"

// Template renders one family's records.
type Template[R any] struct {
	Family core.Family
	// Required fields are checked for nil before Render is called.
	Required []core.Field[R]
	Render   func(R) string
}

// WritingTemplate renders prompt/solution records with a placeholder answer.
var WritingTemplate = Template[core.WritingRecord]{
	Family:   core.FamilyWriting,
	Required: core.WritingSchema.Fields,
	Render: func(r core.WritingRecord) string {
		return RenderWriting(*r.Prompt, *r.Solution)
	},
}

// MathTemplate renders question/solution/answer records.
var MathTemplate = Template[core.MathRecord]{
	Family:   core.FamilyMath,
	Required: core.MathSchema.Fields,
	Render: func(r core.MathRecord) string {
		return RenderMath(*r.Question, *r.GeneratedSolution, *r.ExpectedAnswer)
	},
}

// RenderWriting builds the prompt/solution text.
func RenderWriting(prompt, solution string) string {
	return render(prompt, solution, AnswerPlaceholder)
}

// RenderMath builds the question/solution/answer text.
func RenderMath(question, solution, answer string) string {
	return render(question, solution, answer)
}

func render(head, reasoning, answer string) string {
	var b strings.Builder
	b.Grow(len(head) + len(reasoning) + len(answer) + 48)
	b.WriteString(head)
	b.WriteString("\n" + ReasoningOpen + "\n")
	b.WriteString(reasoning)
	b.WriteString("\n" + ReasoningClose + "\n" + AnswerOpen + "\n")
	b.WriteString(answer)
	b.WriteString("\n" + AnswerClose)
	return b.String()
}

// Validate checks that text is non-blank and carries all four tags.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return &MalformedOutputError{Reason: "text is blank"}
	}
	for _, tag := range []string{ReasoningOpen, ReasoningClose, AnswerOpen, AnswerClose} {
		if !strings.Contains(text, tag) {
			return &MalformedOutputError{Reason: "missing " + tag + " tag"}
		}
	}
	return nil
}

// CountTokens returns the number of whitespace-delimited tokens in text.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Truncate keeps the first limit whitespace tokens of text joined by single
// spaces. It reports the resulting token count and whether text was cut.
// Text within budget is returned unchanged. A limit below 1 disables truncation.
func Truncate(text string, limit int) (string, int, bool) {
	tokens := strings.Fields(text)
	if limit < 1 || len(tokens) <= limit {
		return text, len(tokens), false
	}
	return strings.Join(tokens[:limit], " "), limit, true
}
