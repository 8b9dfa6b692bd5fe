package profiling

import (
	"log"

	"anomalyexplain/domain/dataset"
)

// DataProfiler builds column profiles from a reference table
type DataProfiler struct {
	minCount int
}

// NewDataProfiler creates a profiler that needs at least one non-missing value per column
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{minCount: 1}
}

// ProfileColumn drops missing cells and summarises the rest. It reports false
// when nothing usable remains.
func (dp *DataProfiler) ProfileColumn(name string, column []dataset.Value) (ColumnProfile, bool) {
	values := NonMissing(column)
	if len(values) < dp.minCount || len(values) == 0 {
		return ColumnProfile{Name: name}, false
	}

	profile, err := analyze(name, values)
	if err != nil {
		log.Printf("[DataProfiler] Failed to profile column %s: %v", name, err)
		return ColumnProfile{Name: name}, false
	}
	return profile, true
}

// ProfileReference profiles every column of ref that has usable values
func (dp *DataProfiler) ProfileReference(ref *dataset.Reference) map[string]ColumnProfile {
	profiles := make(map[string]ColumnProfile)
	for _, name := range ref.Columns() {
		col, _ := ref.Column(name)
		if profile, ok := dp.ProfileColumn(name, col); ok {
			profiles[name] = profile
		}
	}
	return profiles
}

// NonMissing returns the recorded numbers of a column, in row order
func NonMissing(column []dataset.Value) []float64 {
	values := make([]float64, 0, len(column))
	for _, v := range column {
		if !v.IsMissing() {
			values = append(values, v.Float)
		}
	}
	return values
}
