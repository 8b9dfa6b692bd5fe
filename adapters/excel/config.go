package excel

import (
	"anomalyexplain/adapters/datareadiness/coercer"
)

// ReaderConfig holds configuration for reference file reading
type ReaderConfig struct {
	// Sheet to read from workbooks; empty means the first sheet
	Sheet          string                 `json:"sheet"`
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
	// Columns never treated as features (identifiers, labels)
	ExcludeColumns []string `json:"exclude_columns"`
}

// DefaultReaderConfig returns sensible defaults for reference loading
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		CoercionConfig: coercer.DefaultCoercionConfig(),
		ExcludeColumns: []string{"id", "risk_score"},
	}
}
