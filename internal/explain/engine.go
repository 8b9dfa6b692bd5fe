// Package explain turns a scored sample and a reference table into a
// human-readable explanation: ranked reasons, feature contributions,
// per-feature deviation records and recommendations.
//
// The heuristics are correlational. Nothing here trains models, picks
// anomaly thresholds or attempts causal analysis.
package explain

import (
	"fmt"
	"runtime"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal"
	"anomalyexplain/internal/profiling"
)

const (
	noNumericFeaturesReason = "No numeric features found for analysis"

	// AnalysisErrorPrefix starts the reason recorded for a recovered failure
	AnalysisErrorPrefix = "Analysis error: "
)

// analysis stages, in the order ExplainAnomaly runs them
const (
	stageDeviation = "deviation"
	stageShift     = "shift"
	stageDuplicate = "duplicate"
)

// Options tunes engine resources. Analysis thresholds are fixed.
type Options struct {
	// Workers bounds concurrent per-sample work in ExplainBatch
	Workers int
	// Logger receives recovered failures and batch timings; nil uses LOG_LEVEL
	Logger *internal.Logger
}

// DefaultOptions returns one worker per available CPU
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0)}
}

// Engine explains anomalous samples. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	profiler *profiling.DataProfiler
	workers  int
	logger   *internal.Logger

	// onStage runs as each analysis stage starts; tests use it to inject failures
	onStage func(stage string)
}

// NewEngine creates an explanation engine
func NewEngine(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = internal.NewDefaultLogger()
	}
	return &Engine{
		profiler: profiling.NewDataProfiler(),
		workers:  opts.Workers,
		logger:   opts.Logger.WithPrefix("[ExplainEngine]"),
	}
}

// ExplainAnomaly explains why sample stands out against ref. It never fails:
// unexpected errors end up as an "Analysis error: ..." reason.
func (e *Engine) ExplainAnomaly(sample dataset.Sample, ref *dataset.Reference) (exp *explanation.Explanation) {
	exp = explanation.New(sample.ID, sample.RiskScore)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Error explaining anomaly %s: %v", exp.SampleID, r)
			exp.PrimaryReasons = append(exp.PrimaryReasons, fmt.Sprintf("%s%v", AnalysisErrorPrefix, r))
		}
	}()

	numeric := sample.NumericFeatures()
	if len(numeric) == 0 {
		exp.PrimaryReasons = append(exp.PrimaryReasons, noNumericFeaturesReason)
		return exp
	}
	if ref == nil {
		ref = dataset.EmptyReference()
	}
	features := sharedFeatures(numeric, ref)

	e.analyzeDeviations(sample, ref, features, exp)

	shift := e.detectDistributionShift(sample, ref, features)
	if shift > shiftReasonThreshold {
		exp.PrimaryReasons = append(exp.PrimaryReasons,
			fmt.Sprintf("Distribution shift detected (score: %.2f)", shift))
		exp.FeatureContributions.Set(explanation.KeyDistributionShift, shift)
	}

	duplicate := e.checkDuplicates(sample, ref, features)
	if duplicate > duplicateReasonThreshold {
		exp.PrimaryReasons = append(exp.PrimaryReasons,
			fmt.Sprintf("Potential duplicate detected (similarity: %.2f)", duplicate))
		exp.FeatureContributions.Set(explanation.KeyDuplicateLikelihood, duplicate)
	}

	ranked := RankReasons(exp.PrimaryReasons)
	exp.Recommendations = GenerateRecommendations(ranked, exp.FeatureContributions, exp.RiskScore)
	if len(ranked) > maxPrimaryReasons {
		ranked = ranked[:maxPrimaryReasons]
	}
	exp.PrimaryReasons = ranked

	return exp
}

func (e *Engine) enterStage(stage string) {
	if e.onStage != nil {
		e.onStage(stage)
	}
}

// sharedFeatures keeps the sample's numeric features that ref also carries
func sharedFeatures(numeric []string, ref *dataset.Reference) []string {
	shared := make([]string, 0, len(numeric))
	for _, name := range numeric {
		if ref.HasColumn(name) {
			shared = append(shared, name)
		}
	}
	return shared
}
