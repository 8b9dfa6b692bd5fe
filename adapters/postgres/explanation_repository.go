package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anomalyexplain/domain/core"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/ports"

	"github.com/jmoiron/sqlx"
)

const defaultListLimit = 50

// explanationRow mirrors the explanations table. JSONB columns travel as
// strings; lib/pq would send []byte as bytea.
type explanationRow struct {
	ID                    string    `db:"id"`
	SampleID              string    `db:"sample_id"`
	RiskScore             float64   `db:"risk_score"`
	ReferenceFingerprint  string    `db:"reference_fingerprint"`
	PrimaryReasons        string    `db:"primary_reasons"`
	FeatureContributions  string    `db:"feature_contributions"`
	StatisticalDeviations string    `db:"statistical_deviations"`
	Recommendations       string    `db:"recommendations"`
	CreatedAt             time.Time `db:"created_at"`
}

const selectColumns = `id, sample_id, risk_score, reference_fingerprint, primary_reasons,
	feature_contributions, statistical_deviations, recommendations, created_at`

// explanationRepository implements the ExplanationRepository interface
type explanationRepository struct {
	db *sqlx.DB
}

// NewExplanationRepository creates a new explanation repository
func NewExplanationRepository(db *sqlx.DB) ports.ExplanationRepository {
	return &explanationRepository{db: db}
}

// Save inserts an explanation record
func (r *explanationRepository) Save(ctx context.Context, record *explanation.Record) error {
	if record == nil || record.Explanation == nil {
		return fmt.Errorf("cannot save empty explanation record")
	}
	row, err := toRow(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO explanations (
		id, sample_id, risk_score, reference_fingerprint, primary_reasons,
		feature_contributions, statistical_deviations, recommendations, created_at
	) VALUES (
		:id, :sample_id, :risk_score, :reference_fingerprint, :primary_reasons,
		:feature_contributions, :statistical_deviations, :recommendations, :created_at
	)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save explanation: %w", err)
	}
	return nil
}

// Get retrieves an explanation record by its ID
func (r *explanationRepository) Get(ctx context.Context, id core.ExplanationID) (*explanation.Record, error) {
	var row explanationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM explanations WHERE id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("explanation", id.String())
		}
		return nil, fmt.Errorf("failed to get explanation: %w", err)
	}
	return fromRow(&row)
}

// ListBySample returns the most recent explanations for one sample
func (r *explanationRepository) ListBySample(ctx context.Context, sampleID string, limit int) ([]*explanation.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM explanations
		WHERE sample_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, sampleID, normalizeLimit(limit))
}

// ListRecent returns the most recent explanations across all samples
func (r *explanationRepository) ListRecent(ctx context.Context, limit int) ([]*explanation.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM explanations ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, normalizeLimit(limit))
}

func (r *explanationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*explanation.Record, error) {
	var rows []explanationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list explanations: %w", err)
	}

	records := make([]*explanation.Record, 0, len(rows))
	for i := range rows {
		record, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func toRow(record *explanation.Record) (*explanationRow, error) {
	exp := record.Explanation
	row := &explanationRow{
		ID:                   record.ID.String(),
		SampleID:             exp.SampleID,
		RiskScore:            exp.RiskScore,
		ReferenceFingerprint: record.ReferenceFingerprint.String(),
		CreatedAt:            record.CreatedAt,
	}

	contributions := exp.FeatureContributions
	if contributions == nil {
		contributions = explanation.NewContributions()
	}
	deviations := exp.StatisticalDeviations
	if deviations == nil {
		deviations = map[string]explanation.StatisticalDeviation{}
	}

	columns := []struct {
		dst   *string
		value interface{}
		what  string
	}{
		{&row.PrimaryReasons, nonNil(exp.PrimaryReasons), "primary reasons"},
		{&row.FeatureContributions, contributions, "feature contributions"},
		{&row.StatisticalDeviations, deviations, "statistical deviations"},
		{&row.Recommendations, nonNil(exp.Recommendations), "recommendations"},
	}
	for _, col := range columns {
		data, err := json.Marshal(col.value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", col.what, err)
		}
		*col.dst = string(data)
	}
	return row, nil
}

func fromRow(row *explanationRow) (*explanation.Record, error) {
	exp := explanation.New(row.SampleID, row.RiskScore)

	if err := unmarshalColumn(row.PrimaryReasons, &exp.PrimaryReasons, "primary reasons"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(row.FeatureContributions, exp.FeatureContributions, "feature contributions"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(row.StatisticalDeviations, &exp.StatisticalDeviations, "statistical deviations"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(row.Recommendations, &exp.Recommendations, "recommendations"); err != nil {
		return nil, err
	}

	return &explanation.Record{
		ID:                   core.ExplanationID(row.ID),
		ReferenceFingerprint: core.Hash(row.ReferenceFingerprint),
		Explanation:          exp,
		CreatedAt:            row.CreatedAt,
	}, nil
}

func unmarshalColumn(data string, dst interface{}, what string) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", what, err)
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
