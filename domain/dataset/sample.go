package dataset

import (
	"encoding/json"
	"math"
	"sort"
)

// Sample is one scored observation handed over by the upstream detector.
// ID and RiskScore are caller-assigned and never validated here.
type Sample struct {
	ID        string
	RiskScore float64
	Features  map[string]any
}

// NumericFeatures returns the names of numeric features in lexicographic order.
// Booleans, strings and nulls are not numeric.
func (s Sample) NumericFeatures() []string {
	names := make([]string, 0, len(s.Features))
	for name, raw := range s.Features {
		if _, ok := ToFloat(raw); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Numeric returns the named feature as float64. A NaN is returned as-is with ok=true.
func (s Sample) Numeric(name string) (float64, bool) {
	raw, ok := s.Features[name]
	if !ok {
		return 0, false
	}
	return ToFloat(raw)
}

// ToFloat converts Go numeric kinds to float64
func ToFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MarshalJSON flattens the sample: id and risk_score next to the features
func (s Sample) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Features)+2)
	for k, v := range s.Features {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	if s.ID != "" {
		out["id"] = s.ID
	}
	out["risk_score"] = s.RiskScore
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat form; "id" and "risk_score" are lifted out of
// the feature set and every other key is kept as a feature.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Sample{Features: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "id":
			switch id := v.(type) {
			case string:
				s.ID = id
			case float64:
				s.ID = formatNumericID(id)
			}
		case "risk_score":
			if f, ok := ToFloat(v); ok {
				s.RiskScore = f
			}
		default:
			s.Features[k] = v
		}
	}
	return nil
}

func formatNumericID(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
