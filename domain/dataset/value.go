package dataset

import (
	"encoding/json"
	"math"
)

// Value is a nullable reference cell. The zero value is missing, which keeps
// a missing cell distinguishable from a recorded 0.
type Value struct {
	Float float64
	Valid bool
}

// Float wraps a recorded number. NaN is normalised to a missing cell.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

// Missing returns an empty cell
func Missing() Value {
	return Value{}
}

// IsMissing reports whether the cell holds no usable number
func (v Value) IsMissing() bool {
	return !v.Valid || math.IsNaN(v.Float)
}

// MarshalJSON encodes missing cells as null
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsMissing() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON accepts a number or null
func (v *Value) UnmarshalJSON(data []byte) error {
	var f *float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f == nil {
		*v = Missing()
		return nil
	}
	*v = Float(*f)
	return nil
}

// Floats builds a column from plain numbers; NaN entries become missing.
func Floats(values ...float64) []Value {
	out := make([]Value, len(values))
	for i, f := range values {
		out[i] = Float(f)
	}
	return out
}
