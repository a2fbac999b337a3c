package graph

import "strings"

// Result is a materialized tabular answer: ordered rows of text cells
// plus parallel column headers. It is a one-shot snapshot; it does not
// reflect later changes to the backing store.
//
// NULL cells are rendered as the literal string "NULL".
type Result struct {
	Headers []string
	Body    [][]string
}

// Size returns the number of rows.
func (r *Result) Size() int {
	return len(r.Body)
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return len(r.Body) == 0
}

// Row returns row i. The index must be in range.
func (r *Result) Row(i int) []string {
	return r.Body[i]
}

// IndexOf returns the index of the named column, or a
// MissingColumnError if it is absent.
func (r *Result) IndexOf(column string) (int, error) {
	for i, h := range r.Headers {
		if h == column {
			return i, nil
		}
	}
	return 0, &MissingColumnError{Column: column}
}

// Column returns the named column as a slice, one cell per row.
// An empty result yields an empty slice for any column name.
func (r *Result) Column(column string) ([]string, error) {
	if r.Empty() {
		return nil, nil
	}
	idx, err := r.IndexOf(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, r.Size())
	for _, row := range r.Body {
		out = append(out, row[idx])
	}
	return out, nil
}

// MergeRows appends other's columns to r, matching rows by their "id"
// cell. The merge is strict, not a left join: every row of r must have
// exactly one row of other with the same id, or a MergeError is
// returned and r is left unchanged. Columns already present in r are
// skipped.
func (r *Result) MergeRows(other *Result) error {
	selfIDs, err := r.Column("id")
	if err != nil {
		return err
	}
	otherIDs, err := other.Column("id")
	if err != nil {
		return err
	}

	counterpart := make(map[string]int, len(otherIDs))
	counts := make(map[string]int, len(otherIDs))
	for i, id := range otherIDs {
		if counts[id] == 0 {
			counterpart[id] = i
		}
		counts[id]++
	}
	for _, id := range selfIDs {
		if n := counts[id]; n != 1 {
			return &MergeError{ID: id, Count: n}
		}
	}

	for ci, col := range other.Headers {
		if _, err := r.IndexOf(col); err == nil {
			continue
		}
		r.Headers = append(r.Headers, col)
		for i := range r.Body {
			src := other.Body[counterpart[selfIDs[i]]]
			r.Body[i] = append(r.Body[i], src[ci])
		}
	}
	return nil
}

// String renders the result as pipe-separated text, headers first.
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Headers, "|"))
	b.WriteByte('\n')
	for _, row := range r.Body {
		b.WriteString(strings.Join(row, "|"))
		b.WriteByte('\n')
	}
	return b.String()
}
