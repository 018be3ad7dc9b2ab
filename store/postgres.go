// Package store persists forecast rows to PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// Schema creates the forecast table. Rows are keyed by entity, forecast base
// and target time so re-exporting a window updates rather than duplicates.
const Schema = `
CREATE TABLE IF NOT EXISTS pv_forecasts (
	entity_type   TEXT        NOT NULL,
	entity_id     BIGINT      NOT NULL,
	forecast_base TIMESTAMPTZ NOT NULL,
	target        TIMESTAMPTZ NOT NULL,
	generation_mw DOUBLE PRECISION,
	extra         JSONB,
	PRIMARY KEY (entity_type, entity_id, forecast_base, target)
)`

// Store writes forecasts to a PostgreSQL database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to the database at connString and ensures the schema exists.
func Open(ctx context.Context, connString string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate creates the pv_forecasts table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create pv_forecasts table: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveForecast upserts every row of f in a single transaction.
func (s *Store) SaveForecast(ctx context.Context, entityType pvforecast.EntityType, f *pvforecast.Forecast) (int, error) {
	records, err := f.Records()
	if err != nil {
		return 0, fmt.Errorf("failed to read forecast rows: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pv_forecasts (
			entity_type,
			entity_id,
			forecast_base,
			target,
			generation_mw,
			extra
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_type, entity_id, forecast_base, target) DO UPDATE SET
			generation_mw = EXCLUDED.generation_mw,
			extra = EXCLUDED.extra
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		extra, err := encodeExtra(rec.Extra)
		if err != nil {
			return 0, fmt.Errorf("failed to encode extra fields for %s: %w", pvforecast.FormatTime(rec.Target), err)
		}
		_, err = stmt.ExecContext(ctx,
			string(entityType),
			rec.EntityID,
			rec.ForecastBase,
			rec.Target,
			nullFloat(rec.GenerationMW),
			extra,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert row for %s: %w", pvforecast.FormatTime(rec.Target), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Int("rows", len(records)).
		Str("entity_type", string(entityType)).
		Msg("Saved forecast rows to database")
	return len(records), nil
}

// encodeExtra renders the extra columns as JSON, or NULL when there are none.
func encodeExtra(extra map[string]any) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	clean := make(map[string]any, len(extra))
	for k, v := range extra {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		clean[k] = v
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}
