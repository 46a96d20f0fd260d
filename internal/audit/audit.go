// Package audit implements the append-only prediction audit log over raw
// pgx, mirroring db/postgres_pgx.go's lightweight pool wrapper rather than
// GORM: audit writes are high-volume and benefit from direct SQL control.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CacheStatus records how a prediction request was served.
type CacheStatus string

const (
	CacheSuccess CacheStatus = "Success"
	CacheHit     CacheStatus = "CachedHit"
	CacheFailure CacheStatus = "Failure"
)

// Record is one prediction audit entry. Append-only: the only field ever
// mutated after insertion is ActualOutcome, and only from nil to non-nil.
type Record struct {
	ID             string
	CorrelationID  string
	Family         string
	ModelVersion   string
	InputFeatures  map[string]any
	OutputPrediction map[string]any
	CacheStatus    CacheStatus
	ResponseTimeMS int64
	UserID         *string
	TenantID       *string
	Timestamp      time.Time
	ActualOutcome  map[string]any
	ErrorMessage   *string
}

// Log is the pgx-backed audit store.
type Log struct {
	pool *pgxpool.Pool
}

// NewLog wraps an already-opened connection pool.
func NewLog(pool *pgxpool.Pool) *Log {
	return &Log{pool: pool}
}

// Migrate creates the audit table and its indexes if they do not already
// exist. Column and table names are snake-cased; features/predictions/
// outcome are stored as JSONB.
func (l *Log) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prediction_audit_records (
			id               TEXT PRIMARY KEY,
			correlation_id   TEXT NOT NULL,
			family           TEXT NOT NULL,
			model_version    TEXT NOT NULL,
			input_features   JSONB NOT NULL,
			output_prediction JSONB NOT NULL,
			cache_status     TEXT NOT NULL,
			response_time_ms BIGINT NOT NULL,
			user_id          TEXT,
			tenant_id        TEXT,
			timestamp        TIMESTAMPTZ NOT NULL,
			actual_outcome   JSONB,
			error_message    TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_correlation_id ON prediction_audit_records (correlation_id);
		CREATE INDEX IF NOT EXISTS idx_audit_family_timestamp ON prediction_audit_records (family, timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_outcome_present ON prediction_audit_records (id) WHERE actual_outcome IS NOT NULL;
	`)
	return err
}

// Append inserts a new audit record. Transport failures are the caller's
// responsibility to log and swallow; Append itself never silently drops an
// error.
func (l *Log) Append(ctx context.Context, r Record) error {
	inputJSON, err := json.Marshal(r.InputFeatures)
	if err != nil {
		return err
	}
	outputJSON, err := json.Marshal(r.OutputPrediction)
	if err != nil {
		return err
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO prediction_audit_records
			(id, correlation_id, family, model_version, input_features, output_prediction,
			 cache_status, response_time_ms, user_id, tenant_id, timestamp, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.CorrelationID, r.Family, r.ModelVersion, inputJSON, outputJSON,
		string(r.CacheStatus), r.ResponseTimeMS, r.UserID, r.TenantID, r.Timestamp, r.ErrorMessage)
	return err
}

// ByCorrelationID returns the audit record for a correlation id, or
// (nil, nil) if none exists.
func (l *Log) ByCorrelationID(ctx context.Context, correlationID string) (*Record, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT id, correlation_id, family, model_version, input_features, output_prediction,
		       cache_status, response_time_ms, user_id, tenant_id, timestamp, actual_outcome, error_message
		FROM prediction_audit_records WHERE correlation_id = $1 LIMIT 1
	`, correlationID)
	return scanRecord(row)
}

// ByFamilyAndWindow returns every record for family with timestamp in
// [from, to).
func (l *Log) ByFamilyAndWindow(ctx context.Context, family string, from, to time.Time) ([]Record, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, correlation_id, family, model_version, input_features, output_prediction,
		       cache_status, response_time_ms, user_id, tenant_id, timestamp, actual_outcome, error_message
		FROM prediction_audit_records
		WHERE family = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp
	`, family, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AmendOutcome sets ActualOutcome exactly once. The UPDATE is conditioned
// on actual_outcome IS NULL so a concurrent or repeated amendment after the
// first never overwrites it (property: monotonic outcome).
func (l *Log) AmendOutcome(ctx context.Context, id string, outcome map[string]any) (amended bool, err error) {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return false, err
	}

	tag, err := l.pool.Exec(ctx, `
		UPDATE prediction_audit_records
		SET actual_outcome = $1
		WHERE id = $2 AND actual_outcome IS NULL
	`, outcomeJSON, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var inputJSON, outputJSON []byte
	var outcomeJSON []byte
	var cacheStatus string

	err := row.Scan(
		&r.ID, &r.CorrelationID, &r.Family, &r.ModelVersion, &inputJSON, &outputJSON,
		&cacheStatus, &r.ResponseTimeMS, &r.UserID, &r.TenantID, &r.Timestamp, &outcomeJSON, &r.ErrorMessage,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.CacheStatus = CacheStatus(cacheStatus)
	if err := json.Unmarshal(inputJSON, &r.InputFeatures); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(outputJSON, &r.OutputPrediction); err != nil {
		return nil, err
	}
	if len(outcomeJSON) > 0 {
		if err := json.Unmarshal(outcomeJSON, &r.ActualOutcome); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
