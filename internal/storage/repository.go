package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrRunNotFound indicates no archived run has the requested id.
	ErrRunNotFound = errors.New("storage: run not found")
)

const (
	createRunsTableSQL = `CREATE TABLE IF NOT EXISTS forecast_runs (
        run_id          TEXT PRIMARY KEY,
        source          TEXT NOT NULL DEFAULT '',
        module_type     TEXT NOT NULL,
        model_type      TEXT NOT NULL,
        horizon         INTEGER NOT NULL,
        first_ts        TEXT NOT NULL DEFAULT '',
        mae             NUMERIC,
        rmse            NUMERIC,
        mape            NUMERIC,
        config          JSONB NOT NULL,
        payload         JSONB NOT NULL,
        duration_ms     BIGINT NOT NULL DEFAULT 0,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS forecast_runs_created_at_idx ON forecast_runs (created_at DESC);`

	upsertRunSQL = `INSERT INTO forecast_runs (
        run_id,
        source,
        module_type,
        model_type,
        horizon,
        first_ts,
        mae,
        rmse,
        mape,
        config,
        payload,
        duration_ms,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    )
    ON CONFLICT (run_id) DO UPDATE
    SET
        source      = EXCLUDED.source,
        mae         = EXCLUDED.mae,
        rmse        = EXCLUDED.rmse,
        mape        = EXCLUDED.mape,
        config      = EXCLUDED.config,
        payload     = EXCLUDED.payload,
        duration_ms = EXCLUDED.duration_ms;`

	selectRunColumns = `SELECT
        run_id,
        source,
        module_type,
        model_type,
        horizon,
        first_ts,
        mae::text,
        rmse::text,
        mape::text,
        config,
        payload,
        duration_ms,
        created_at
    FROM forecast_runs`

	getRunSQL = selectRunColumns + `
    WHERE run_id = $1;`

	listRecentRunsSQL = selectRunColumns + `
    ORDER BY created_at DESC
    LIMIT $1;`

	listRunsBySourceSQL = selectRunColumns + `
    WHERE source = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	countRunsSQL = `SELECT COUNT(*) FROM forecast_runs;`

	countRunsBeforeSQL = `SELECT COUNT(*) FROM forecast_runs WHERE created_at < $1;`

	deleteRunsBeforeSQL = `DELETE FROM forecast_runs WHERE created_at < $1;`
)

// DB is the subset of pgxpool.Pool the archive needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RunStore defines operations for run archive persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run forecast.RunResult, source string) error
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListRunsBySource(ctx context.Context, source string, limit int) ([]RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
	CountRunsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	DeleteRunsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// Store archives forecast runs in PostgreSQL.
type Store struct {
	db DB
}

// NewStore wires a pgx pool (or anything shaped like one) into a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

func (s *Store) getDB() (DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.StorageError, fmt.Sprintf("%s: %v", op, err), err)
}

// EnsureSchema creates the archive table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, execErr := db.Exec(ctx, createRunsTableSQL); execErr != nil {
		return storageErr("ensure schema", execErr)
	}
	return nil
}

// SaveRun persists or updates a run.
func (s *Store) SaveRun(ctx context.Context, run forecast.RunResult, source string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	rec, err := NewRunRecord(run, source)
	if err != nil {
		return storageErr("save run", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, execErr := db.Exec(ctx, upsertRunSQL,
		rec.RunID,
		rec.Source,
		rec.Module,
		rec.Model,
		rec.Horizon,
		rec.FirstTimestamp,
		decimalArg(rec.MAE),
		decimalArg(rec.RMSE),
		decimalArg(rec.MAPE),
		[]byte(rec.Config),
		[]byte(rec.Payload),
		rec.DurationMS,
		createdAt,
	)
	if execErr != nil {
		return storageErr("upsert run", execErr)
	}
	return nil
}

// GetRun loads a single run.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return RunRecord{}, err
	}
	rec, scanErr := scanRun(db.QueryRow(ctx, getRunSQL, runID))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if scanErr != nil {
		return RunRecord{}, storageErr("get run", scanErr)
	}
	return rec, nil
}

// ListRecentRuns lists the most recent runs, newest first.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, queryErr := db.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, storageErr("list recent runs", queryErr)
	}
	return collectRuns(rows, limit)
}

// ListRunsBySource lists runs recorded against one data source.
func (s *Store) ListRunsBySource(ctx context.Context, source string, limit int) ([]RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, queryErr := db.Query(ctx, listRunsBySourceSQL, source, limit)
	if queryErr != nil {
		return nil, storageErr("list runs by source", queryErr)
	}
	return collectRuns(rows, limit)
}

// CountRuns counts archived runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := db.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, storageErr("count runs", scanErr)
	}
	return count, nil
}

// CountRunsBefore counts runs created before the cutoff.
func (s *Store) CountRunsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := db.QueryRow(ctx, countRunsBeforeSQL, olderThan).Scan(&count); scanErr != nil {
		return 0, storageErr("count runs before", scanErr)
	}
	return count, nil
}

// DeleteRunsBefore prunes runs older than the cutoff and reports how many
// were removed.
func (s *Store) DeleteRunsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	tag, execErr := db.Exec(ctx, deleteRunsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, storageErr("delete runs before", execErr)
	}
	return tag.RowsAffected(), nil
}

func collectRuns(rows pgx.Rows, limit int) ([]RunRecord, error) {
	defer rows.Close()

	runs := make([]RunRecord, 0, max(limit, 0))
	for rows.Next() {
		rec, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, storageErr("scan run", scanErr)
		}
		runs = append(runs, rec)
	}
	if rows.Err() != nil {
		return nil, storageErr("iterate runs", rows.Err())
	}
	return runs, nil
}

func decimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func scanRun(row pgx.Row) (RunRecord, error) {
	var (
		rec     RunRecord
		mae     sql.NullString
		rmse    sql.NullString
		mape    sql.NullString
		config  []byte
		payload []byte
	)

	if err := row.Scan(
		&rec.RunID,
		&rec.Source,
		&rec.Module,
		&rec.Model,
		&rec.Horizon,
		&rec.FirstTimestamp,
		&mae,
		&rmse,
		&mape,
		&config,
		&payload,
		&rec.DurationMS,
		&rec.CreatedAt,
	); err != nil {
		return RunRecord{}, err
	}

	var err error
	if rec.MAE, err = parseNullDecimal(mae); err != nil {
		return RunRecord{}, fmt.Errorf("parse mae: %w", err)
	}
	if rec.RMSE, err = parseNullDecimal(rmse); err != nil {
		return RunRecord{}, fmt.Errorf("parse rmse: %w", err)
	}
	if rec.MAPE, err = parseNullDecimal(mape); err != nil {
		return RunRecord{}, fmt.Errorf("parse mape: %w", err)
	}
	rec.Config = json.RawMessage(config)
	rec.Payload = json.RawMessage(payload)
	return rec, nil
}

func parseNullDecimal(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

var _ RunStore = (*Store)(nil)
