package explain

import (
	"anomalyexplain/domain/dataset"
	"anomalyexplain/internal/profiling"
)

const (
	shiftMinReference    = 10 // a feature needs more than this many reference values
	shiftReasonThreshold = 0.7
)

// percentile bands, most extreme first; first match wins
var shiftBands = []struct {
	tail  float64
	score float64
}{
	{1, 0.9},
	{5, 0.7},
	{10, 0.5},
}

const shiftBaseline = 0.1

// detectDistributionShift averages how far into the tails each shared feature
// sits. Percentiles are used instead of z-scores so skewed columns are not
// over-penalised. Failures are logged and read as no shift.
func (e *Engine) detectDistributionShift(sample dataset.Sample, ref *dataset.Reference, features []string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Error in distribution shift detection: %v", r)
			score = 0
		}
	}()
	e.enterStage(stageShift)

	var total float64
	var n int
	for _, name := range features {
		x, ok := sample.Numeric(name)
		if !ok || !isFinite(x) {
			continue
		}
		col, _ := ref.Column(name)
		if len(profiling.NonMissing(col)) <= shiftMinReference {
			continue
		}
		profile, ok := e.profiler.ProfileColumn(name, col)
		if !ok {
			continue
		}
		total += ShiftScore(profile.PercentileRank(x))
		n++
	}

	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// ShiftScore maps a percentile rank (0-100) to a per-feature shift score
func ShiftScore(percentile float64) float64 {
	for _, band := range shiftBands {
		if percentile < band.tail || percentile > 100-band.tail {
			return band.score
		}
	}
	return shiftBaseline
}
