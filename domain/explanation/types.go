// Package explanation holds the records produced by the explanation engine.
package explanation

import (
	"time"

	"anomalyexplain/domain/core"
)

// Synthetic contribution keys that do not name a feature
const (
	KeyDistributionShift   = "distribution_shift"
	KeyDuplicateLikelihood = "duplicate_likelihood"

	UnknownSampleID = "unknown"
)

// StatisticalDeviation describes where a sample value sits in the reference column
type StatisticalDeviation struct {
	ZScore        float64 `json:"z_score"`
	SampleValue   float64 `json:"sample_value"`
	ReferenceMean float64 `json:"reference_mean"`
	ReferenceStd  float64 `json:"reference_std"`
	Percentile    float64 `json:"percentile"`
}

// Explanation is the output record for one sample. Callers own it.
type Explanation struct {
	SampleID              string                          `json:"sample_id"`
	RiskScore             float64                         `json:"risk_score"`
	PrimaryReasons        []string                        `json:"primary_reasons"`
	FeatureContributions  *Contributions                  `json:"feature_contributions"`
	StatisticalDeviations map[string]StatisticalDeviation `json:"statistical_deviations"`
	Recommendations       []string                        `json:"recommendations"`
}

// New returns an empty explanation for the given sample identity
func New(sampleID string, riskScore float64) *Explanation {
	if sampleID == "" {
		sampleID = UnknownSampleID
	}
	return &Explanation{
		SampleID:              sampleID,
		RiskScore:             riskScore,
		PrimaryReasons:        []string{},
		FeatureContributions:  NewContributions(),
		StatisticalDeviations: map[string]StatisticalDeviation{},
		Recommendations:       []string{},
	}
}

// FeatureImportance is one row of a batch importance summary
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Count      int     `json:"count"`
}

// Record is a persisted explanation
type Record struct {
	ID                   core.ExplanationID `json:"id" db:"id"`
	ReferenceFingerprint core.Hash          `json:"reference_fingerprint" db:"reference_fingerprint"`
	Explanation          *Explanation       `json:"explanation"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
}

// NewRecord wraps an explanation for storage
func NewRecord(exp *Explanation, fingerprint core.Hash) *Record {
	return &Record{
		ID:                   core.NewExplanationID(),
		ReferenceFingerprint: fingerprint,
		Explanation:          exp,
		CreatedAt:            time.Now().UTC(),
	}
}
