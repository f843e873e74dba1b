package core

import "strings"

// WritingRecord is one row of the prompt/solution family.
type WritingRecord struct {
	Prompt   *string `json:"prompt"`
	Solution *string `json:"solution"`
}

// MathRecord is one row of the question/solution/answer family.
type MathRecord struct {
	Question          *string `json:"question"`
	GeneratedSolution *string `json:"generated_solution"`
	ExpectedAnswer    *string `json:"expected_answer"`
}

// String returns a pointer to s. Nil pointers represent null or absent values.
func String(s string) *string {
	return &s
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// IsBlank reports whether p is nil, empty, or whitespace only.
func IsBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
