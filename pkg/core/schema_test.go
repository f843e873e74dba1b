package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_FromRow(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want MathRecord
	}{
		{
			name: "all strings",
			row:  Row{"question": "Q", "generated_solution": "G", "expected_answer": "A"},
			want: MathRecord{Question: String("Q"), GeneratedSolution: String("G"), ExpectedAnswer: String("A")},
		},
		{
			name: "null and absent become nil",
			row:  Row{"question": "Q", "generated_solution": nil},
			want: MathRecord{Question: String("Q")},
		},
		{
			name: "numbers are stringified",
			row:  Row{"question": "Q", "generated_solution": "G", "expected_answer": int64(42)},
			want: MathRecord{Question: String("Q"), GeneratedSolution: String("G"), ExpectedAnswer: String("42")},
		},
		{
			name: "extra columns ignored",
			row:  Row{"question": "Q", "is_correct": true},
			want: MathRecord{Question: String("Q")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MathSchema.FromRow(tt.row))
		})
	}
}

func TestSchema_ToRow(t *testing.T) {
	row := WritingSchema.ToRow(WritingRecord{Prompt: String("P")})
	assert.Equal(t, Row{"prompt": "P", "solution": nil}, row)
	assert.Equal(t, []string{"prompt", "solution"}, WritingSchema.Columns())
}

func TestSchema_Field(t *testing.T) {
	f, ok := MathSchema.Field("expected_answer")
	require.True(t, ok)
	assert.Equal(t, "expected_answer", f.Name)

	_, ok = MathSchema.Field("prompt")
	assert.False(t, ok)
}

func TestCorpusTableRoundTrip(t *testing.T) {
	c := NewCorpus(FamilyWriting,
		WritingRecord{Prompt: String("a"), Solution: String("b")},
		WritingRecord{Prompt: String("c")},
	)
	table := TableFromCorpus(WritingSchema, c)
	assert.Equal(t, FamilyWriting, table.Family)
	assert.Equal(t, 2, table.Len())

	back, err := CorpusFromTable(WritingSchema, table)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestCorpusFromTable_FamilyMismatch(t *testing.T) {
	_, err := CorpusFromTable(WritingSchema, &Table{Family: FamilyMath})
	assert.Error(t, err)
}
