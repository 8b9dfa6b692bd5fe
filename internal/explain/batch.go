package explain

import (
	"sort"
	"time"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"

	"golang.org/x/sync/errgroup"
)

// ExplainBatch explains each sample independently. Output slot i always
// belongs to samples[i]; ref is shared read-only across workers.
func (e *Engine) ExplainBatch(samples []dataset.Sample, ref *dataset.Reference) []*explanation.Explanation {
	out := make([]*explanation.Explanation, len(samples))
	if len(samples) == 0 {
		return out
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range samples {
		g.Go(func() error {
			out[i] = e.ExplainAnomaly(samples[i], ref)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Debug("Explained %d samples in %v (%d workers)",
		len(samples), time.Since(start), e.workers)
	return out
}

// FeatureImportanceSummary averages each contribution key over the
// explanations that carry it, most important first. Ties keep the order in
// which keys were first seen.
func FeatureImportanceSummary(explanations []*explanation.Explanation) []explanation.FeatureImportance {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, exp := range explanations {
		if exp == nil {
			continue
		}
		exp.FeatureContributions.Each(func(key string, score float64) {
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			sums[key] += score
			counts[key]++
		})
	}

	summary := make([]explanation.FeatureImportance, 0, len(order))
	for _, key := range order {
		summary = append(summary, explanation.FeatureImportance{
			Feature:    key,
			Importance: sums[key] / float64(counts[key]),
			Count:      counts[key],
		})
	}

	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].Importance > summary[j].Importance
	})
	return summary
}
