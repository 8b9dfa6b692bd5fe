package dataset

import (
	"encoding/json"
	"math"
	"sort"

	"anomalyexplain/domain/core"
)

// Reference is a read-only columnar table of historical "normal" observations.
// All columns share the same row count. It is safe for concurrent readers.
type Reference struct {
	columns map[string][]Value
	order   []string
	rows    int
}

// NewReference builds a Reference from named columns. Column order is
// lexicographic; every column must have the same length.
func NewReference(columns map[string][]Value) (*Reference, error) {
	ref := &Reference{columns: make(map[string][]Value, len(columns))}

	for name := range columns {
		ref.order = append(ref.order, name)
	}
	sort.Strings(ref.order)

	for i, name := range ref.order {
		col := columns[name]
		if i == 0 {
			ref.rows = len(col)
		} else if len(col) != ref.rows {
			return nil, core.NewRaggedReferenceError(name, len(col), ref.rows)
		}
		copied := make([]Value, len(col))
		copy(copied, col)
		ref.columns[name] = copied
	}

	return ref, nil
}

// EmptyReference returns a table with no columns and no rows
func EmptyReference() *Reference {
	return &Reference{columns: map[string][]Value{}}
}

// Column returns the named column. The returned slice must not be modified.
func (r *Reference) Column(name string) ([]Value, bool) {
	if r == nil {
		return nil, false
	}
	col, ok := r.columns[name]
	return col, ok
}

// HasColumn reports whether the table carries the named column
func (r *Reference) HasColumn(name string) bool {
	_, ok := r.Column(name)
	return ok
}

// Columns lists column names in table order
func (r *Reference) Columns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NumRows returns the number of observations
func (r *Reference) NumRows() int {
	if r == nil {
		return 0
	}
	return r.rows
}

// Row fills dst with row i projected onto features, in that order.
// It reports false when any projected cell is missing or a feature is absent.
func (r *Reference) Row(i int, features []string, dst []float64) bool {
	for j, name := range features {
		col, ok := r.columns[name]
		if !ok || i >= len(col) || col[i].IsMissing() {
			return false
		}
		dst[j] = col[i].Float
	}
	return true
}

// Fingerprint hashes the table contents, independent of construction order
func (r *Reference) Fingerprint() core.Hash {
	raw := make(map[string][]float64, len(r.columns))
	for name, col := range r.columns {
		floats := make([]float64, len(col))
		for i, v := range col {
			if v.IsMissing() {
				floats[i] = math.NaN()
			} else {
				floats[i] = v.Float
			}
		}
		raw[name] = floats
	}
	return core.HashColumns(raw)
}

// MarshalJSON encodes the table as {"column": [v, null, ...]}
func (r *Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.columns)
}

// UnmarshalJSON decodes the columnar form produced by MarshalJSON
func (r *Reference) UnmarshalJSON(data []byte) error {
	var columns map[string][]Value
	if err := json.Unmarshal(data, &columns); err != nil {
		return err
	}
	built, err := NewReference(columns)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}
