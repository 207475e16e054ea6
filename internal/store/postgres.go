package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/db"
	"github.com/sampa-labs/brgen-cli/internal/location"
	"github.com/sampa-labs/brgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. It also carries the city
// dataset import, which the SQLite default does not offer.
type PostgresStore struct {
	pool    db.Pool
	clock   clockwork.Clock
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, params, record_count, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run":      `UPDATE runs SET status = $1, record_count = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":          `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, params, record_count, status, error, created_at, updated_at FROM runs WHERE id = $1`,
	"insert_cep_lookup": `INSERT INTO cep_lookups (id, cep, ok, error, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool. A nil clock
// uses the wall clock.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig, clock clockwork.Clock) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresStore{pool: pool, clock: clock, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	params       JSONB NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'running',
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cep_lookups (
	id         TEXT PRIMARY KEY,
	cep        TEXT NOT NULL,
	ok         BOOLEAN NOT NULL,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cities (
	key              TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	uf               TEXT NOT NULL,
	population       BIGINT NOT NULL DEFAULT 0,
	pct_state        DOUBLE PRECISION NOT NULL DEFAULT 0,
	pct_total        DOUBLE PRECISION NOT NULL DEFAULT 0,
	ddd              TEXT,
	cep_range_begins TEXT,
	cep_range_ends   TEXT,
	ceps             JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_cep_lookups_cep ON cep_lookups(cep);
CREATE INDEX IF NOT EXISTS idx_cities_uf ON cities(uf);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, params model.RunParams) (*model.GenerationRun, error) {
	id := uuid.New().String()
	now := s.clock.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, params, record_count, status, created_at, updated_at) VALUES ($1, $2, 0, $3, $4, $5)`,
		id, paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.GenerationRun{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, recordCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, record_count = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), recordCount, s.clock.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errText, s.clock.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.GenerationRun, error) {
	var r model.GenerationRun
	var paramsJSON []byte
	var errText *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, params, record_count, status, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &paramsJSON, &r.RecordCount, &r.Status, &errText, &r.CreatedAt, &r.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run params")
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.GenerationRun, error) {
	query := `SELECT id, params, record_count, status, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.GenerationRun
	for rows.Next() {
		var r model.GenerationRun
		var paramsJSON []byte
		var errText *string

		if err := rows.Scan(&r.ID, &paramsJSON, &r.RecordCount, &r.Status, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run params")
		}
		if errText != nil {
			r.Error = *errText
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RecordCEPLookup(ctx context.Context, lookup model.CEPLookup) error {
	if lookup.ID == "" {
		lookup.ID = uuid.New().String()
	}
	if lookup.CreatedAt.IsZero() {
		lookup.CreatedAt = s.clock.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cep_lookups (id, cep, ok, error, created_at) VALUES ($1, $2, $3, $4, $5)`,
		lookup.ID, lookup.CEP, lookup.OK, lookup.Error, lookup.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert cep lookup")
}

func (s *PostgresStore) CountCEPLookups(ctx context.Context) (LookupStats, error) {
	var stats LookupStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT ok) FROM cep_lookups`,
	).Scan(&stats.Total, &stats.Failed)
	if err != nil {
		return LookupStats{}, eris.Wrap(err, "postgres: count cep lookups")
	}
	return stats, nil
}

// cityColumns is the COPY column list for ImportCities.
var cityColumns = []string{
	"key", "name", "uf", "population",
	"pct_state", "pct_total",
	"ddd", "cep_range_begins", "cep_range_ends", "ceps",
}

// ImportCities bulk-upserts the dataset's city table, replacing rows under
// their compound keys. Rows follow the dataset's key order.
func (s *PostgresStore) ImportCities(ctx context.Context, d *location.Dataset) (int64, error) {
	if d == nil {
		return 0, nil
	}

	keys := d.CityKeys()
	rows := make([][]any, 0, len(keys))
	for _, key := range keys {
		rec := d.Cities[key]
		if rec == nil {
			continue
		}

		var ceps []byte
		if len(rec.Ceps) > 0 {
			var err error
			ceps, err = json.Marshal(rec.Ceps)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: marshal ceps for %s", key)
			}
		}
		rows = append(rows, []any{
			key, rec.CityName, rec.CityUF, rec.CityPopulation,
			rec.PopulationPercentageState, rec.PopulationPercentageTotal,
			rec.DDD, rec.CEPRangeBegins, rec.CEPRangeEnds, ceps,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "cities",
		Columns:      cityColumns,
		ConflictKeys: []string{"key"},
	}, rows)
}
