package api

import (
	"anomalyexplain/domain/core"
	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
)

// ExplainRequest asks for one explanation. Reference falls back to the
// server's loaded reference when omitted.
type ExplainRequest struct {
	Sample    *dataset.Sample    `json:"sample"`
	Reference *dataset.Reference `json:"reference,omitempty"`
}

// ExplainResponse carries the explanation and, when stored, its record id
type ExplainResponse struct {
	ID          core.ExplanationID       `json:"id,omitempty"`
	Explanation *explanation.Explanation `json:"explanation"`
}

// BatchRequest asks for one explanation per sample
type BatchRequest struct {
	Samples   []dataset.Sample   `json:"samples"`
	Reference *dataset.Reference `json:"reference,omitempty"`
}

// BatchResponse keeps explanations in request order
type BatchResponse struct {
	IDs          []core.ExplanationID            `json:"ids,omitempty"`
	Explanations []*explanation.Explanation      `json:"explanations"`
	Summary      []explanation.FeatureImportance `json:"summary"`
}

// ImportanceRequest aggregates previously produced explanations
type ImportanceRequest struct {
	Explanations []*explanation.Explanation `json:"explanations"`
}

// ImportanceResponse is the ranked importance summary
type ImportanceResponse struct {
	Summary []explanation.FeatureImportance `json:"summary"`
}

// ReferenceColumn summarises one column of the server's reference.
// StdDev is omitted when the column has fewer than two values.
type ReferenceColumn struct {
	Name   string   `json:"name"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	StdDev *float64 `json:"std_dev,omitempty"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Median float64  `json:"median"`
}

// ReferenceResponse describes the reference requests fall back to
type ReferenceResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Rows        int               `json:"rows"`
	Columns     []ReferenceColumn `json:"columns"`
}

// ErrorResponse is the body of every non-2xx JSON answer
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
