package coercer

import (
	"testing"

	"anomalyexplain/domain/dataset"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" -3.5 ", -3.5, true},
		{"1e3", 1000, true},
		{"(120)", -120, true},
		{"$1,234.50", 1234.5, true},
		{"1.234,56", 1234.56, true},
		{"1 234,5", 1234.5, true},
		{"3,75", 3.75, true},
		{"12%", 12, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumeric(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.raw)
		}
	}
}

func TestCoerceCell_MissingTokens(t *testing.T) {
	c := NewCellCoercer(DefaultCoercionConfig())

	for _, raw := range []string{"", "  ", "NA", "null", "N/A", "nan", "-"} {
		assert.True(t, c.CoerceCell(raw).IsMissing(), "%q", raw)
	}
	assert.Equal(t, dataset.Float(0), c.CoerceCell("0"))
	assert.True(t, c.CoerceCell("oops").IsMissing())
}

func TestCoerceColumn_AnyParsableCellKeepsColumn(t *testing.T) {
	c := NewCellCoercer(DefaultCoercionConfig())

	values, numeric := c.CoerceColumn([]string{"1", "2", "", "4", "x"})
	assert.True(t, numeric)
	assert.True(t, values[2].IsMissing())
	assert.True(t, values[4].IsMissing())
	assert.Equal(t, 4.0, values[3].Float)

	values, numeric = c.CoerceColumn([]string{"red", "green", "3"})
	assert.True(t, numeric, "a single parsable cell is enough")
	assert.True(t, values[0].IsMissing())
	assert.True(t, values[1].IsMissing())
	assert.Equal(t, 3.0, values[2].Float)

	_, numeric = c.CoerceColumn([]string{"red", "green"})
	assert.False(t, numeric)

	_, numeric = c.CoerceColumn([]string{"", "NA"})
	assert.False(t, numeric)
}
