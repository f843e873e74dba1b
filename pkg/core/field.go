package core

// Field is a typed accessor for one named column of record type R.
// Set returns a modified copy; records are values and are never mutated in place.
type Field[R any] struct {
	Name string
	Get  func(R) *string
	Set  func(R, *string) R
}

// FieldNames returns the names of fields in order.
func FieldNames[R any](fields []Field[R]) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Writing family fields.
var (
	WritingPrompt = Field[WritingRecord]{
		Name: "prompt",
		Get:  func(r WritingRecord) *string { return r.Prompt },
		Set:  func(r WritingRecord, v *string) WritingRecord { r.Prompt = v; return r },
	}
	WritingSolution = Field[WritingRecord]{
		Name: "solution",
		Get:  func(r WritingRecord) *string { return r.Solution },
		Set:  func(r WritingRecord, v *string) WritingRecord { r.Solution = v; return r },
	}
)

// Math family fields.
var (
	MathQuestion = Field[MathRecord]{
		Name: "question",
		Get:  func(r MathRecord) *string { return r.Question },
		Set:  func(r MathRecord, v *string) MathRecord { r.Question = v; return r },
	}
	MathGeneratedSolution = Field[MathRecord]{
		Name: "generated_solution",
		Get:  func(r MathRecord) *string { return r.GeneratedSolution },
		Set:  func(r MathRecord, v *string) MathRecord { r.GeneratedSolution = v; return r },
	}
	MathExpectedAnswer = Field[MathRecord]{
		Name: "expected_answer",
		Get:  func(r MathRecord) *string { return r.ExpectedAnswer },
		Set:  func(r MathRecord, v *string) MathRecord { r.ExpectedAnswer = v; return r },
	}
)
