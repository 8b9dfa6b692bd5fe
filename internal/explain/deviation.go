package explain

import (
	"fmt"
	"math"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
)

const (
	extremeZScore     = 3.0
	significantZScore = 2.0
	extremeWeight     = 0.3
	significantWeight = 0.2
)

// analyzeDeviations records a z-score and percentile for every shared feature
// whose reference column has spread, and flags features beyond 2 and 3
// standard deviations.
func (e *Engine) analyzeDeviations(sample dataset.Sample, ref *dataset.Reference, features []string, exp *explanation.Explanation) {
	e.enterStage(stageDeviation)
	for _, name := range features {
		x, ok := sample.Numeric(name)
		if !ok || !isFinite(x) {
			continue
		}
		col, _ := ref.Column(name)
		profile, ok := e.profiler.ProfileColumn(name, col)
		if !ok || !profile.HasSpread() {
			continue
		}

		z := profile.ZScore(x)
		if !isFinite(z) {
			// spread too small for x; the ratio overflowed
			continue
		}
		exp.StatisticalDeviations[name] = explanation.StatisticalDeviation{
			ZScore:        z,
			SampleValue:   x,
			ReferenceMean: profile.Mean,
			ReferenceStd:  profile.StdDev,
			Percentile:    profile.PercentileRank(x),
		}

		switch {
		case z > extremeZScore:
			exp.PrimaryReasons = append(exp.PrimaryReasons,
				fmt.Sprintf("Extreme outlier in %s: %.2f standard deviations from normal", name, z))
			exp.FeatureContributions.Set(name, z*extremeWeight)
		case z > significantZScore:
			exp.PrimaryReasons = append(exp.PrimaryReasons,
				fmt.Sprintf("Significant deviation in %s: %.2f standard deviations", name, z))
			exp.FeatureContributions.Set(name, z*significantWeight)
		}
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
