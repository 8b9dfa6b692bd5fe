package coercer

import (
	"math"
	"strconv"
	"strings"

	"anomalyexplain/domain/dataset"
)

// CellCoercer turns raw spreadsheet cells into nullable numbers
type CellCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion rules
type CoercionConfig struct {
	MissingTokens []string `json:"missing_tokens"` // compared case-insensitively after trimming
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		MissingTokens: []string{"", "na", "n/a", "nan", "null", "none", "-"},
	}
}

// NewCellCoercer creates a coercer with the given config
func NewCellCoercer(config CoercionConfig) *CellCoercer {
	return &CellCoercer{config: config}
}

// IsMissingToken reports whether raw is one of the configured blank markers
func (c *CellCoercer) IsMissingToken(raw string) bool {
	clean := strings.ToLower(strings.TrimSpace(raw))
	for _, token := range c.config.MissingTokens {
		if clean == token {
			return true
		}
	}
	return false
}

// CoerceCell parses raw as a number; blanks and unparsable text become missing
func (c *CellCoercer) CoerceCell(raw string) dataset.Value {
	if c.IsMissingToken(raw) {
		return dataset.Missing()
	}
	if f, ok := ParseNumeric(raw); ok {
		return dataset.Float(f)
	}
	return dataset.Missing()
}

// CoerceColumn converts a whole column and reports whether it is numeric.
// A column is numeric when at least one cell parses; every other cell
// becomes missing.
func (c *CellCoercer) CoerceColumn(raw []string) ([]dataset.Value, bool) {
	values := make([]dataset.Value, len(raw))
	parsed := 0
	for i, cell := range raw {
		values[i] = c.CoerceCell(cell)
		if !values[i].IsMissing() {
			parsed++
		}
	}
	return values, parsed > 0
}

// ParseNumeric parses a number with strict rules. It handles parentheses for
// negatives, currency symbols, percent signs and European decimal commas.
func ParseNumeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(strings.ReplaceAll(cleanVal, "%", ""))

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the tail after the last comma is short
		commaIdx := strings.LastIndex(cleanVal, ",")
		if commaIdx > strings.LastIndex(cleanVal, ".") && len(cleanVal)-commaIdx-1 <= 3 {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}
