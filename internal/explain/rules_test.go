package explain

import (
	"testing"

	"anomalyexplain/domain/explanation"

	"github.com/stretchr/testify/assert"
)

func TestReasonPriority(t *testing.T) {
	tests := []struct {
		reason   string
		priority int
		kind     string
	}{
		{"Extreme outlier in amount: 4.20 standard deviations from normal", 10, KindExtremeOutlier},
		{"EXTREME OUTLIER somewhere", 10, KindExtremeOutlier},
		{"Mild outlier in items", 8, KindOutlier},
		{"Distribution shift detected (score: 0.90)", 7, KindDistributionShift},
		{"Potential duplicate detected (similarity: 0.95)", 6, KindDuplicate},
		{"Significant deviation in x: 2.50 standard deviations", 5, KindDeviation},
		{"Outlier with a deviation", 8, KindOutlier},
		{"Analysis error: boom", 1, KindOther},
		{"", 1, KindOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.priority, ReasonPriority(tt.reason), tt.reason)
		assert.Equal(t, tt.kind, ReasonKind(tt.reason), tt.reason)
	}
}

func TestRankReasons_StableDescending(t *testing.T) {
	reasons := []string{
		"Significant deviation in a: 2.10 standard deviations",
		"Potential duplicate detected (similarity: 0.99)",
		"Extreme outlier in b: 3.50 standard deviations from normal",
		"Significant deviation in c: 2.20 standard deviations",
		"Extreme outlier in d: 5.00 standard deviations from normal",
		"Distribution shift detected (score: 0.75)",
	}

	ranked := RankReasons(reasons)

	assert.Equal(t, []string{
		"Extreme outlier in b: 3.50 standard deviations from normal",
		"Extreme outlier in d: 5.00 standard deviations from normal",
		"Distribution shift detected (score: 0.75)",
		"Potential duplicate detected (similarity: 0.99)",
		"Significant deviation in a: 2.10 standard deviations",
		"Significant deviation in c: 2.20 standard deviations",
	}, ranked)
	assert.Equal(t, "Significant deviation in a: 2.10 standard deviations", reasons[0], "input must not be reordered")
}

func TestGenerateRecommendations(t *testing.T) {
	t.Run("reason rules then focus then risk", func(t *testing.T) {
		contributions := explanation.NewContributions()
		contributions.Set("amount", 0.42)
		contributions.Set("latency_ms", 1.2)

		recs := GenerateRecommendations([]string{
			"Significant deviation in latency_ms: 2.50 standard deviations",
			"Potential duplicate detected (similarity: 0.97)",
		}, contributions, 0.7)

		assert.Equal(t, []string{
			"Check for data leakage or repeated entries",
			"Review data deduplication process",
			"Focus investigation on features: latency_ms",
			"Medium risk sample - consider additional validation",
		}, recs)
	})

	t.Run("deduplicates repeated outliers", func(t *testing.T) {
		recs := GenerateRecommendations([]string{
			"Extreme outlier in a: 4.00 standard deviations from normal",
			"Extreme outlier in b: 5.00 standard deviations from normal",
		}, explanation.NewContributions(), 0.2)

		assert.Equal(t, []string{
			"Verify data collection process for this sample",
			"Check if extreme values are measurement errors",
		}, recs)
	})

	t.Run("focus lists at most three keys in insertion order", func(t *testing.T) {
		contributions := explanation.NewContributions()
		for _, key := range []string{"d", "a", "c", "b"} {
			contributions.Set(key, 0.9)
		}
		recs := GenerateRecommendations(nil, contributions, 0)
		assert.Equal(t, []string{"Focus investigation on features: d, a, c"}, recs)
	})

	t.Run("contribution of exactly 0.5 is not a focus", func(t *testing.T) {
		contributions := explanation.NewContributions()
		contributions.Set("x", 0.5)
		assert.Empty(t, GenerateRecommendations(nil, contributions, 0.6))
	})

	t.Run("truncates to five and keeps the risk advisory", func(t *testing.T) {
		contributions := explanation.NewContributions()
		contributions.Set("x", 30)
		contributions.Set(explanation.KeyDistributionShift, 0.9)

		recs := GenerateRecommendations([]string{
			"Extreme outlier in x: 100.00 standard deviations from normal",
			"Distribution shift detected (score: 0.90)",
			"Potential duplicate detected (similarity: 1.00)",
		}, contributions, 0.95)

		assert.Equal(t, []string{
			"Verify data collection process for this sample",
			"Check if extreme values are measurement errors",
			"Review data preprocessing pipeline",
			"Consider retraining model with recent data",
			"High risk sample - requires immediate manual review",
		}, recs)
	})

	t.Run("truncates to five without a risk advisory", func(t *testing.T) {
		recs := GenerateRecommendations([]string{
			"Extreme outlier in x: 9.00 standard deviations from normal",
			"Distribution shift detected (score: 0.90)",
			"Potential duplicate detected (similarity: 1.00)",
		}, explanation.NewContributions(), 0.1)

		assert.Len(t, recs, 5)
		assert.Equal(t, "Check for data leakage or repeated entries", recs[4])
	})
}
