package explain

import (
	"math"

	"anomalyexplain/domain/dataset"

	"gonum.org/v1/gonum/floats"
)

const duplicateReasonThreshold = 0.8

// checkDuplicates returns the highest absolute cosine similarity between the
// sample and any complete reference row. Raw values are compared, not
// standardised ones.
func (e *Engine) checkDuplicates(sample dataset.Sample, ref *dataset.Reference, features []string) (best float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Error in duplicate detection: %v", r)
			best = 0
		}
	}()
	e.enterStage(stageDuplicate)

	if len(features) == 0 {
		return 0
	}

	vec := make([]float64, len(features))
	for i, name := range features {
		x, ok := sample.Numeric(name)
		if !ok || !isFinite(x) {
			return 0
		}
		vec[i] = x
	}
	if floats.Norm(vec, 2) == 0 {
		return 0
	}

	row := make([]float64, len(features))
	for i := 0; i < ref.NumRows(); i++ {
		if !ref.Row(i, features, row) {
			continue
		}
		sim := CosineSimilarity(vec, row)
		if math.IsNaN(sim) {
			continue
		}
		if sim > best {
			best = sim
		}
	}
	return best
}

// CosineSimilarity returns |cos| between a and b, or 0 when either is all zeros
func CosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Abs(floats.Dot(a, b) / (na * nb))
}
