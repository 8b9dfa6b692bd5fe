package explain

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal/profiling"
	"anomalyexplain/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(Options{Workers: 4})
}

func mustReference(t *testing.T, columns map[string][]dataset.Value) *dataset.Reference {
	t.Helper()
	ref, err := dataset.NewReference(columns)
	require.NoError(t, err)
	return ref
}

func sequence(n int) []dataset.Value {
	col := make([]dataset.Value, n)
	for i := range col {
		col[i] = dataset.Float(float64(i))
	}
	return col
}

func TestExplainAnomaly_ExtremeOutlier(t *testing.T) {
	ref := mustReference(t, map[string][]dataset.Value{
		"x": testkit.NormalColumn(1000, 0, 1, 7),
	})
	sample := dataset.Sample{ID: "s1", RiskScore: 0.9, Features: map[string]any{"x": 100.0}}

	exp := newTestEngine().ExplainAnomaly(sample, ref)

	assert.Equal(t, "s1", exp.SampleID)
	assert.Equal(t, 0.9, exp.RiskScore)

	dev, ok := exp.StatisticalDeviations["x"]
	require.True(t, ok)
	assert.InDelta(t, 100, dev.ZScore, 6)
	assert.Equal(t, 100.0, dev.SampleValue)
	assert.Equal(t, 100.0, dev.Percentile)

	contribution, ok := exp.FeatureContributions.Get("x")
	require.True(t, ok)
	assert.InDelta(t, 30.0, contribution, 2)
	assert.InDelta(t, dev.ZScore*0.3, contribution, 1e-12)

	require.NotEmpty(t, exp.PrimaryReasons)
	assert.True(t, strings.HasPrefix(exp.PrimaryReasons[0], "Extreme outlier in x: "), exp.PrimaryReasons[0])
	assert.True(t, strings.HasSuffix(exp.PrimaryReasons[0], "standard deviations from normal"))
	assert.Contains(t, exp.PrimaryReasons, "Distribution shift detected (score: 0.90)")
	assert.Contains(t, exp.Recommendations, "High risk sample - requires immediate manual review")
	assert.Contains(t, exp.Recommendations, "Verify data collection process for this sample")
	assert.LessOrEqual(t, len(exp.Recommendations), 5)
}

func TestExplainAnomaly_SignificantDeviation(t *testing.T) {
	col := testkit.NormalColumn(500, 10, 2, 3)
	ref := mustReference(t, map[string][]dataset.Value{"x": col})
	profile, ok := profiling.NewDataProfiler().ProfileColumn("x", col)
	require.True(t, ok)

	x := profile.Mean + 2.5*profile.StdDev
	exp := newTestEngine().ExplainAnomaly(dataset.Sample{ID: "s2", Features: map[string]any{"x": x}}, ref)

	assert.Contains(t, exp.PrimaryReasons, "Significant deviation in x: 2.50 standard deviations")
	contribution, ok := exp.FeatureContributions.Get("x")
	require.True(t, ok)
	assert.InDelta(t, 0.5, contribution, 1e-9)
	assert.InDelta(t, profile.Mean, exp.StatisticalDeviations["x"].ReferenceMean, 1e-12)
	assert.InDelta(t, profile.StdDev, exp.StatisticalDeviations["x"].ReferenceStd, 1e-12)
}

func TestExplainAnomaly_WithinNormalKeepsRecordOnly(t *testing.T) {
	col := testkit.NormalColumn(500, 10, 2, 3)
	ref := mustReference(t, map[string][]dataset.Value{"x": col})
	profile, _ := profiling.NewDataProfiler().ProfileColumn("x", col)

	sample := dataset.Sample{Features: map[string]any{"x": profile.Mean + 0.5*profile.StdDev}}
	exp := newTestEngine().ExplainAnomaly(sample, ref)

	assert.Equal(t, explanation.UnknownSampleID, exp.SampleID)
	assert.Contains(t, exp.StatisticalDeviations, "x")
	_, ok := exp.FeatureContributions.Get("x")
	assert.False(t, ok)
	for _, reason := range exp.PrimaryReasons {
		assert.NotContains(t, reason, "deviation")
		assert.NotContains(t, reason, "outlier")
	}
}

func TestExplainAnomaly_DuplicateOfReferenceRow(t *testing.T) {
	cfg := testkit.DefaultReferenceConfig()
	cfg.Rows = 200
	ref, err := testkit.NewReferenceGenerator(cfg).Generate()
	require.NoError(t, err)

	features := map[string]any{}
	for _, name := range ref.Columns() {
		col, _ := ref.Column(name)
		features[name] = col[17].Float
	}

	exp := newTestEngine().ExplainAnomaly(dataset.Sample{ID: "dup", Features: features}, ref)

	assert.Contains(t, exp.PrimaryReasons, "Potential duplicate detected (similarity: 1.00)")
	score, ok := exp.FeatureContributions.Get(explanation.KeyDuplicateLikelihood)
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Contains(t, exp.Recommendations, "Check for data leakage or repeated entries")
}

func TestExplainAnomaly_EmptyOrDisjointReference(t *testing.T) {
	engine := newTestEngine()
	sample := dataset.Sample{ID: "s3", RiskScore: 0.1, Features: map[string]any{"x": 5.0, "y": 2}}

	refs := map[string]*dataset.Reference{
		"empty":    dataset.EmptyReference(),
		"nil":      nil,
		"disjoint": mustReference(t, map[string][]dataset.Value{"z": sequence(50)}),
	}

	for name, ref := range refs {
		t.Run(name, func(t *testing.T) {
			exp := engine.ExplainAnomaly(sample, ref)
			assert.Empty(t, exp.StatisticalDeviations)
			assert.Empty(t, exp.PrimaryReasons)
			assert.Equal(t, 0, exp.FeatureContributions.Len())
			assert.Empty(t, exp.Recommendations)

			var nonNil *dataset.Reference = ref
			if nonNil == nil {
				nonNil = dataset.EmptyReference()
			}
			features := sharedFeatures(sample.NumericFeatures(), nonNil)
			assert.Equal(t, 0.0, engine.detectDistributionShift(sample, nonNil, features))
			assert.Equal(t, 0.0, engine.checkDuplicates(sample, nonNil, features))
		})
	}
}

func TestExplainAnomaly_ZeroVarianceSkipped(t *testing.T) {
	constant := make([]dataset.Value, 20)
	for i := range constant {
		constant[i] = dataset.Float(5)
	}
	ref := mustReference(t, map[string][]dataset.Value{"x": constant})

	exp := newTestEngine().ExplainAnomaly(dataset.Sample{Features: map[string]any{"x": 9.0}}, ref)

	assert.NotContains(t, exp.StatisticalDeviations, "x")
	for _, reason := range exp.PrimaryReasons {
		assert.NotContains(t, reason, "in x:")
	}
}

func TestExplainAnomaly_NoNumericFeatures(t *testing.T) {
	ref := mustReference(t, map[string][]dataset.Value{"x": sequence(20)})
	sample := dataset.Sample{ID: "txt", RiskScore: 0.95, Features: map[string]any{"name": "abc", "flag": true, "x": nil}}

	exp := newTestEngine().ExplainAnomaly(sample, ref)

	assert.Equal(t, []string{noNumericFeaturesReason}, exp.PrimaryReasons)
	assert.Empty(t, exp.Recommendations)
	assert.Empty(t, exp.StatisticalDeviations)
}

func TestExplainAnomaly_MissingValues(t *testing.T) {
	col := sequence(30)
	col[3] = dataset.Missing()
	col[4] = dataset.Float(math.NaN())
	ref := mustReference(t, map[string][]dataset.Value{"x": col, "y": sequence(30)})

	exp := newTestEngine().ExplainAnomaly(dataset.Sample{Features: map[string]any{"x": 10.0, "y": math.NaN()}}, ref)

	require.Contains(t, exp.StatisticalDeviations, "x")
	assert.NotContains(t, exp.StatisticalDeviations, "y")

	dev := exp.StatisticalDeviations["x"]
	profile, _ := profiling.NewDataProfiler().ProfileColumn("x", col)
	assert.Equal(t, 28, profile.Count)
	assert.InDelta(t, profile.Mean, dev.ReferenceMean, 1e-12)
}

func TestDetectDistributionShift_NeedsMoreThanTenValues(t *testing.T) {
	engine := newTestEngine()
	sample := dataset.Sample{Features: map[string]any{"x": 1000.0}}

	small := mustReference(t, map[string][]dataset.Value{"x": sequence(10)})
	assert.Equal(t, 0.0, engine.detectDistributionShift(sample, small, []string{"x"}))
	exp := engine.ExplainAnomaly(sample, small)
	for _, reason := range exp.PrimaryReasons {
		assert.NotContains(t, reason, "Distribution shift")
	}

	enough := mustReference(t, map[string][]dataset.Value{"x": sequence(11)})
	assert.Equal(t, 0.9, engine.detectDistributionShift(sample, enough, []string{"x"}))

	padded := sequence(15)
	for i := 10; i < 15; i++ {
		padded[i] = dataset.Missing()
	}
	withGaps := mustReference(t, map[string][]dataset.Value{"x": padded})
	assert.Equal(t, 0.0, engine.detectDistributionShift(sample, withGaps, []string{"x"}))
}

func TestDetectDistributionShift_AveragesFeatures(t *testing.T) {
	engine := newTestEngine()
	ref := mustReference(t, map[string][]dataset.Value{
		"a": sequence(100),
		"b": sequence(100),
	})
	// a sits above every value (p=100 -> 0.9), b in the middle (p=51 -> 0.1)
	sample := dataset.Sample{Features: map[string]any{"a": 500.0, "b": 50.0}}

	score := engine.detectDistributionShift(sample, ref, []string{"a", "b"})
	assert.InDelta(t, 0.5, score, 1e-12)
}

func TestShiftScore_FirstMatchWins(t *testing.T) {
	tests := []struct {
		percentile float64
		want       float64
	}{
		{0, 0.9},
		{0.5, 0.9},
		{1, 0.7},
		{3, 0.7},
		{5, 0.5},
		{7, 0.5},
		{10, 0.1},
		{50, 0.1},
		{90, 0.1},
		{92, 0.5},
		{95, 0.5},
		{97, 0.7},
		{99, 0.7},
		{99.5, 0.9},
		{100, 0.9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShiftScore(tt.percentile), "p=%v", tt.percentile)
	}
}

func TestCheckDuplicates(t *testing.T) {
	engine := newTestEngine()
	ref := mustReference(t, map[string][]dataset.Value{
		"a": {dataset.Float(1), dataset.Missing(), dataset.Float(0), dataset.Float(-2)},
		"b": {dataset.Float(0), dataset.Float(1), dataset.Float(0), dataset.Float(0)},
	})
	features := []string{"a", "b"}

	t.Run("anti-parallel counts as similar", func(t *testing.T) {
		s := dataset.Sample{Features: map[string]any{"a": 3.0, "b": 0.0}}
		assert.InDelta(t, 1.0, engine.checkDuplicates(s, ref, features), 1e-12)
	})

	t.Run("rows with missing cells and zero rows are skipped", func(t *testing.T) {
		s := dataset.Sample{Features: map[string]any{"a": 0.0, "b": 1.0}}
		assert.InDelta(t, 0.0, engine.checkDuplicates(s, ref, features), 1e-12)
	})

	t.Run("sample with NaN compares nothing", func(t *testing.T) {
		s := dataset.Sample{Features: map[string]any{"a": math.NaN(), "b": 1.0}}
		assert.Equal(t, 0.0, engine.checkDuplicates(s, ref, features))
	})

	t.Run("no features", func(t *testing.T) {
		s := dataset.Sample{Features: map[string]any{"a": 1.0}}
		assert.Equal(t, 0.0, engine.checkDuplicates(s, ref, nil))
	})

	t.Run("diagonal", func(t *testing.T) {
		s := dataset.Sample{Features: map[string]any{"a": 1.0, "b": 1.0}}
		assert.InDelta(t, 1/math.Sqrt2, engine.checkDuplicates(s, ref, features), 1e-12)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{-1, -2}), 1e-12)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

// Invariants that must hold for any input
func TestExplainAnomaly_Invariants(t *testing.T) {
	cfg := testkit.DefaultReferenceConfig()
	cfg.MissingRate = 0.05
	gen := testkit.NewReferenceGenerator(cfg)
	ref, err := gen.Generate()
	require.NoError(t, err)
	engine := newTestEngine()

	shifts := []map[string]float64{
		nil,
		{"amount": 2.5},
		{"amount": 8, "latency_ms": -4},
		{"amount": 12, "latency_ms": 9, "items": 6},
	}

	for i := 0; i < 40; i++ {
		sample := gen.Sample(fmt.Sprintf("s%d", i), float64(i%10)/10, shifts[i%len(shifts)])
		exp := engine.ExplainAnomaly(sample, ref)

		assert.LessOrEqual(t, len(exp.PrimaryReasons), 3)
		for j := 1; j < len(exp.PrimaryReasons); j++ {
			assert.GreaterOrEqual(t, ReasonPriority(exp.PrimaryReasons[j-1]), ReasonPriority(exp.PrimaryReasons[j]))
		}

		assert.LessOrEqual(t, len(exp.Recommendations), 5)
		seen := map[string]bool{}
		for _, rec := range exp.Recommendations {
			assert.False(t, seen[rec], "duplicate recommendation %q", rec)
			seen[rec] = true
		}

		for name, dev := range exp.StatisticalDeviations {
			assert.GreaterOrEqual(t, dev.ZScore, 0.0, name)
			assert.GreaterOrEqual(t, dev.Percentile, 0.0, name)
			assert.LessOrEqual(t, dev.Percentile, 100.0, name)
			assert.Greater(t, dev.ReferenceStd, 0.0, name)
		}

		exp.FeatureContributions.Each(func(key string, score float64) {
			assert.GreaterOrEqual(t, score, 0.0, key)
		})
	}
}
