package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

var runColumns = []string{
	"run_id", "source", "module_type", "model_type", "horizon", "first_ts",
	"mae", "rmse", "mape", "config", "payload", "duration_ms", "created_at",
}

func sampleRun() forecast.RunResult {
	return forecast.RunResult{
		RunID:      "run-1",
		Config:     forecast.DefaultConfig(),
		Timestamps: []string{"2024-01-01", "2024-01-02"},
		Forecast:   []float64{1.5, 2.5},
		Intervals:  []forecast.Interval{{Level: 80, Lower: []float64{1, 2}, Upper: []float64{2, 3}}},
		Metrics:    forecast.Metrics{MAE: forecast.Float(0.25), RMSE: forecast.Float(0.5)},
		Duration:   1500 * time.Millisecond,
		CreatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	run := sampleRun()
	mock.ExpectExec("INSERT INTO forecast_runs").
		WithArgs("run-1", "sample:airpassengers", "StatsForecast", "auto_arima", 2, "2024-01-01",
			"0.25", "0.5", nil, pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1500), run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	require.NoError(t, store.SaveRun(context.Background(), run, "sample:airpassengers"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunFailureIsStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO forecast_runs").WillReturnError(errors.New("connection reset"))

	err = NewStore(mock).SaveRun(context.Background(), sampleRun(), "")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec, err := NewRunRecord(sampleRun(), "upload:sales.csv")
	require.NoError(t, err)

	mock.ExpectQuery("FROM forecast_runs\\s+WHERE run_id = \\$1").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).AddRow(
			"run-1", "upload:sales.csv", "StatsForecast", "auto_arima", 2, "2024-01-01",
			"0.25", "0.5", nil, []byte(rec.Config), []byte(rec.Payload), int64(1500), rec.CreatedAt,
		))

	got, err := NewStore(mock).GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "upload:sales.csv", got.Source)
	assert.True(t, got.RMSE.Valid)
	assert.False(t, got.MAPE.Valid)

	run, err := got.Run()
	require.NoError(t, err)
	assert.Equal(t, sampleRun().Forecast, run.Forecast)
	assert.Equal(t, sampleRun().Key(), run.Key())
	require.NotNil(t, run.Metrics.RMSE)
	assert.Equal(t, 0.5, *run.Metrics.RMSE)
	assert.Nil(t, run.Metrics.MAPE)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM forecast_runs").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err = NewStore(mock).GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRecentRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec, err := NewRunRecord(sampleRun(), "")
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("b", "", "StatsForecast", "naive", 2, "2024-01-01", nil, "1.25", nil, []byte(rec.Config), []byte(rec.Payload), int64(10), now).
			AddRow("a", "", "StatsForecast", "naive", 2, "2024-01-01", "0.1", nil, nil, []byte(rec.Config), []byte(rec.Payload), int64(10), now.Add(-time.Hour)))

	runs, err := NewStore(mock).ListRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.False(t, runs[0].MAE.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndPrune(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM forecast_runs;").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery("WHERE created_at < \\$1").WithArgs(cutoff).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectExec("DELETE FROM forecast_runs").WithArgs(cutoff).WillReturnResult(pgxmock.NewResult("DELETE", 3))

	store := NewStore(mock)
	n, err := store.CountRuns(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	older, err := store.CountRunsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, older)

	removed, err := store.DeleteRunsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.ErrorIs(t, s.SaveRun(context.Background(), sampleRun(), ""), ErrNotConfigured)
	s.Close()
}
