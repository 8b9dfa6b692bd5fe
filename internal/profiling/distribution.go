package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// ColumnProfile summarises the non-missing values of one reference column
type ColumnProfile struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // sample standard deviation (N-1); NaN when Count < 2
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`

	sorted []float64
}

// HasSpread reports whether z-scores can be taken against this column
func (p ColumnProfile) HasSpread() bool {
	return p.StdDev > 0 && !math.IsInf(p.StdDev, 0)
}

// ZScore returns |x - mean| / std. Callers must check HasSpread first.
func (p ColumnProfile) ZScore(x float64) float64 {
	return math.Abs((x - p.Mean) / p.StdDev)
}

// PercentileRank places x within the column on a 0-100 scale.
// Ties count half, matching scipy's percentileofscore(kind="rank").
func (p ColumnProfile) PercentileRank(x float64) float64 {
	n := len(p.sorted)
	if n == 0 || math.IsNaN(x) {
		return math.NaN()
	}

	strict := sort.SearchFloat64s(p.sorted, x)
	weak := stat.CDF(x, stat.Empirical, p.sorted, nil)
	right := int(math.Round(weak * float64(n)))

	plus1 := 0
	if strict < right {
		plus1 = 1
	}
	return float64(strict+right+plus1) * 50.0 / float64(n)
}

// analyze computes summary statistics over already-filtered values
func analyze(name string, values []float64) (ColumnProfile, error) {
	profile := ColumnProfile{Name: name, Count: len(values), StdDev: math.NaN()}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	profile.sorted = sorted

	mean, err := stats.Mean(sorted)
	if err != nil {
		return profile, err
	}
	profile.Mean = mean

	if len(sorted) > 1 {
		std, err := stats.StandardDeviationSample(sorted)
		if err != nil {
			return profile, err
		}
		profile.StdDev = std
	}

	profile.Min = sorted[0]
	profile.Max = sorted[len(sorted)-1]

	median, err := stats.Median(sorted)
	if err != nil {
		return profile, err
	}
	profile.Median = median

	return profile, nil
}
