package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampa-labs/brgen-cli/internal/location"
	"github.com/sampa-labs/brgen-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit
// testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, clock: clockwork.NewFakeClockAt(testEpoch)}
	return s, mock
}

func TestPostgres_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.True(t, run.CreatedAt.Equal(testEpoch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id =`).
		WithArgs("missing-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRunScansRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "params", "record_count", "status", "error", "created_at", "updated_at"}).
		AddRow("run-1", []byte(`{"quantity":5}`), 5, model.RunStatusComplete, (*string)(nil), testEpoch, testEpoch.Add(time.Minute))
	mock.ExpectQuery(`FROM runs WHERE id =`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 5, run.Params.Quantity)
	assert.Equal(t, 5, run.RecordCount)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Empty(t, run.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status =`).
		WithArgs("complete", 42, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.CompleteRun(context.Background(), "run-1", 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status =`).
		WithArgs("complete", 1, pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status =`).
		WithArgs("failed", "cep bridge unreachable", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.FailRun(context.Background(), "run-1", eris.New("cep bridge unreachable")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "params", "record_count", "status", "error", "created_at", "updated_at"}).
		AddRow("run-2", []byte(`{"quantity":2}`), 2, model.RunStatusComplete, (*string)(nil), testEpoch.Add(time.Hour), testEpoch.Add(time.Hour)).
		AddRow("run-1", []byte(`{"quantity":1}`), 1, model.RunStatusComplete, (*string)(nil), testEpoch, testEpoch)
	mock.ExpectQuery(`FROM runs WHERE true`).
		WithArgs(100).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordCEPLookup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO cep_lookups`).
		WithArgs(pgxmock.AnyArg(), "01001-000", true, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordCEPLookup(context.Background(), model.CEPLookup{CEP: "01001-000", OK: true})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountCEPLookups(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"count", "failed"}).AddRow(int64(7), int64(2))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(rows)

	stats, err := s.CountCEPLookups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LookupStats{Total: 7, Failed: 2}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ImportCities(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	d := location.NewDataset()
	d.SetState("São Paulo", &location.StateRecord{StateAbbr: "SP", PopulationPercentage: 1})
	d.SetCity("São Paulo_SP", &location.CityRecord{
		CityName:                  "São Paulo",
		CityUF:                    "SP",
		CityPopulation:            11451999,
		PopulationPercentageState: 0.9,
		PopulationPercentageTotal: 0.6,
		DDD:                       "11",
		CEPRangeBegins:            "01000-000",
		CEPRangeEnds:              "05999-999",
	})
	d.SetCity("Campinas_SP", &location.CityRecord{
		CityName:                  "Campinas",
		CityUF:                    "SP",
		CityPopulation:            1139047,
		PopulationPercentageState: 0.1,
		PopulationPercentageTotal: 0.07,
		DDD:                       "19",
		Ceps:                      []string{"13010000", "13015000"},
	})

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_cities"}, cityColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.ImportCities(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ImportCitiesNilDataset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.ImportCities(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
