package core

// Row is one untyped record at the storage boundary.
type Row map[string]any

// Table is an ordered, family-tagged collection of rows as persisted on disk.
// Columns fixes the column order used when writing.
type Table struct {
	Family  Family
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Concat appends the rows of other tables after t's rows.
// Columns are the union in first-seen order.
func Concat(family Family, tables ...*Table) *Table {
	out := &Table{Family: family}
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}
