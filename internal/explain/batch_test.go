package explain

import (
	"fmt"
	"testing"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainBatch_PreservesOrder(t *testing.T) {
	gen := testkit.NewReferenceGenerator(testkit.DefaultReferenceConfig())
	ref, err := gen.Generate()
	require.NoError(t, err)

	samples := make([]dataset.Sample, 25)
	for i := range samples {
		samples[i] = gen.Sample(fmt.Sprintf("sample-%02d", i), 0.5, map[string]float64{"amount": float64(i % 7)})
	}
	samples[3].ID = ""

	for _, workers := range []int{1, 8} {
		engine := NewEngine(Options{Workers: workers})
		out := engine.ExplainBatch(samples, ref)

		require.Len(t, out, len(samples))
		for i, exp := range out {
			require.NotNil(t, exp)
			if i == 3 {
				assert.Equal(t, explanation.UnknownSampleID, exp.SampleID)
				continue
			}
			assert.Equal(t, samples[i].ID, exp.SampleID)
		}
	}
}

func TestExplainBatch_MatchesSingleCalls(t *testing.T) {
	gen := testkit.NewReferenceGenerator(testkit.DefaultReferenceConfig())
	ref, err := gen.Generate()
	require.NoError(t, err)
	engine := NewEngine(Options{Workers: 4})

	samples := []dataset.Sample{
		gen.Sample("a", 0.9, map[string]float64{"amount": 6}),
		gen.Sample("b", 0.1, nil),
		{ID: "c", Features: map[string]any{"label": "x"}},
	}

	batch := engine.ExplainBatch(samples, ref)
	for i, s := range samples {
		assert.Equal(t, engine.ExplainAnomaly(s, ref), batch[i])
	}
}

func TestExplainBatch_Empty(t *testing.T) {
	out := NewEngine(DefaultOptions()).ExplainBatch(nil, dataset.EmptyReference())
	assert.Empty(t, out)
}

func explanationWith(pairs ...any) *explanation.Explanation {
	exp := explanation.New("e", 0)
	for i := 0; i < len(pairs); i += 2 {
		exp.FeatureContributions.Set(pairs[i].(string), pairs[i+1].(float64))
	}
	return exp
}

func TestFeatureImportanceSummary(t *testing.T) {
	exps := []*explanation.Explanation{
		explanationWith("x", 3.0, "distribution_shift", 0.8),
		explanationWith("y", 0.5),
		explanationWith("x", 1.0, "y", 0.7),
		explanationWith(),
		nil,
	}

	summary := FeatureImportanceSummary(exps)

	require.Len(t, summary, 3)
	assert.Equal(t, explanation.FeatureImportance{Feature: "x", Importance: 2.0, Count: 2}, summary[0])
	assert.Equal(t, "distribution_shift", summary[1].Feature)
	assert.InDelta(t, 0.8, summary[1].Importance, 1e-12)
	assert.Equal(t, "y", summary[2].Feature)
	assert.InDelta(t, 0.6, summary[2].Importance, 1e-12)
	assert.Equal(t, 2, summary[2].Count)
}

func TestFeatureImportanceSummary_TiesKeepDiscoveryOrder(t *testing.T) {
	summary := FeatureImportanceSummary([]*explanation.Explanation{
		explanationWith("b", 1.0, "a", 1.0),
		explanationWith("c", 1.0),
	})

	require.Len(t, summary, 3)
	assert.Equal(t, "b", summary[0].Feature)
	assert.Equal(t, "a", summary[1].Feature)
	assert.Equal(t, "c", summary[2].Feature)
}

func TestFeatureImportanceSummary_Empty(t *testing.T) {
	assert.Empty(t, FeatureImportanceSummary(nil))
}
