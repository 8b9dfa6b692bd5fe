package ports

import (
	"context"

	"anomalyexplain/domain/core"
	"anomalyexplain/domain/explanation"
)

// ExplanationRepository defines the interface for explanation storage operations
type ExplanationRepository interface {
	Save(ctx context.Context, record *explanation.Record) error
	// Get returns an error wrapping core.ErrNotFound when the id is unknown
	Get(ctx context.Context, id core.ExplanationID) (*explanation.Record, error)
	// ListBySample returns newest first
	ListBySample(ctx context.Context, sampleID string, limit int) ([]*explanation.Record, error)
	ListRecent(ctx context.Context, limit int) ([]*explanation.Record, error)
}
