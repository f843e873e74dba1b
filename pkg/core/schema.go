package core

import "fmt"

// Schema describes the fixed column layout of a family's record type.
// Fields are listed in storage column order; all of them are required.
type Schema[R any] struct {
	Family Family
	Fields []Field[R]
	// Key is the field whose exact value identifies duplicates.
	Key Field[R]
}

// WritingSchema is the prompt/solution schema. Duplicates are keyed on prompt.
var WritingSchema = Schema[WritingRecord]{
	Family: FamilyWriting,
	Fields: []Field[WritingRecord]{WritingPrompt, WritingSolution},
	Key:    WritingPrompt,
}

// MathSchema is the question/generated_solution/expected_answer schema.
// Duplicates are keyed on question.
var MathSchema = Schema[MathRecord]{
	Family: FamilyMath,
	Fields: []Field[MathRecord]{MathQuestion, MathGeneratedSolution, MathExpectedAnswer},
	Key:    MathQuestion,
}

// Columns returns the schema's column names in order.
func (s Schema[R]) Columns() []string {
	return FieldNames(s.Fields)
}

// Field looks up a field by column name.
func (s Schema[R]) Field(name string) (Field[R], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[R]{}, false
}

// FromRow projects a storage row onto the schema.
// Absent columns and nulls become nil; non-string scalars are stringified.
// Columns outside the schema are ignored.
func (s Schema[R]) FromRow(row Row) R {
	var r R
	for _, f := range s.Fields {
		v, ok := row[f.Name]
		if !ok || v == nil {
			continue
		}
		r = f.Set(r, stringify(v))
	}
	return r
}

// ToRow converts a record into a storage row holding only schema columns.
func (s Schema[R]) ToRow(r R) Row {
	row := make(Row, len(s.Fields))
	for _, f := range s.Fields {
		if v := f.Get(r); v != nil {
			row[f.Name] = *v
		} else {
			row[f.Name] = nil
		}
	}
	return row
}

// CorpusFromTable converts a table into a typed corpus.
// The table's family must match the schema's.
func CorpusFromTable[R any](s Schema[R], t *Table) (Corpus[R], error) {
	if t == nil {
		return Corpus[R]{}, fmt.Errorf("%s: nil table", s.Family)
	}
	if t.Family != "" && t.Family != s.Family {
		return Corpus[R]{}, fmt.Errorf("table family %q does not match schema %q", t.Family, s.Family)
	}
	records := make([]R, len(t.Rows))
	for i, row := range t.Rows {
		records[i] = s.FromRow(row)
	}
	return Corpus[R]{Family: s.Family, Records: records}, nil
}

// TableFromCorpus converts a typed corpus into a table with the schema's columns.
func TableFromCorpus[R any](s Schema[R], c Corpus[R]) *Table {
	rows := make([]Row, len(c.Records))
	for i, r := range c.Records {
		rows[i] = s.ToRow(r)
	}
	return &Table{Family: s.Family, Columns: s.Columns(), Rows: rows}
}

func stringify(v any) *string {
	switch x := v.(type) {
	case string:
		return &x
	case []byte:
		return String(string(x))
	case fmt.Stringer:
		return String(x.String())
	default:
		return String(fmt.Sprint(x))
	}
}
