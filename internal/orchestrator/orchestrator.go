// Package orchestrator owns the working session: the active data source, the
// current configuration, run history and the derived leaderboard. Service
// calls are made without holding the lock; a source version token discards
// responses that arrive after the source changed.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/cache"
	"forecast-workbench/internal/client"
	"forecast-workbench/internal/datasource"
	"forecast-workbench/internal/forecast"
)

// RunState is the single in-flight operation marker.
type RunState int

const (
	Idle RunState = iota
	Uploading
	Forecasting
	Benchmarking
	Backtesting
)

func (s RunState) String() string {
	switch s {
	case Uploading:
		return "uploading"
	case Forecasting:
		return "forecasting"
	case Benchmarking:
		return "benchmarking"
	case Backtesting:
		return "backtesting"
	default:
		return "idle"
	}
}

var (
	// ErrBusy is returned when an operation is already in flight.
	ErrBusy = apperr.New(apperr.Busy, "another operation is in progress")
	// ErrNoData is returned when no data source is selected.
	ErrNoData = apperr.New(apperr.NoData, "select a dataset or upload a file first")
	// ErrEmptySelection is returned when a batch or backtest has no configs.
	ErrEmptySelection = apperr.New(apperr.EmptySelection, "select at least one configuration")
	// ErrStaleResult is returned when the data source changed mid-request.
	ErrStaleResult = apperr.New(apperr.Stale, "data source changed while the request was in flight; result discarded")
)

// Engine is the forecasting service.
type Engine interface {
	Upload(ctx context.Context, name string, data []byte, dsCol, yCol string) (client.UploadResult, error)
	GetDataset(ctx context.Context, id string) (forecast.DatasetInfo, forecast.Series, error)
	Forecast(ctx context.Context, cfg forecast.Config, ref forecast.DataRef) (forecast.Output, error)
	ForecastBatch(ctx context.Context, cfgs []forecast.Config, ref forecast.DataRef) (forecast.BatchResult, error)
	Backtest(ctx context.Context, cfgs []forecast.Config, windows, step int, ref forecast.DataRef) (forecast.BacktestResult, error)
}

// Archive persists completed runs beyond the session.
type Archive interface {
	SaveRun(ctx context.Context, run forecast.RunResult, source string) error
}

// Observer receives operation outcomes for metrics.
type Observer interface {
	ObserveRun(operation string, err error)
	SetLeaderboardSize(n int)
}

// Options configure an Orchestrator. Engine is required.
type Options struct {
	Engine   Engine
	Cache    cache.ConfigCache
	Archive  Archive
	Observer Observer
	Now      func() time.Time
	NewID    func() string
}

// Orchestrator coordinates data source selection and forecast runs.
type Orchestrator struct {
	engine   Engine
	cache    cache.ConfigCache
	archive  Archive
	observer Observer
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger

	source  *datasource.Manager
	history forecast.History

	mu           sync.Mutex
	state        RunState
	cfg          forecast.Config
	lastRun      *forecast.RunResult
	lastErr      error
	lastDuration time.Duration
	batch        *forecast.BatchResult
	backtest     *forecast.BacktestResult
}

// New constructs an orchestrator holding the default configuration. Call
// Restore to rehydrate the cached configuration.
func New(opts Options, logger zerolog.Logger) *Orchestrator {
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Orchestrator{
		engine:   opts.Engine,
		cache:    c,
		archive:  opts.Archive,
		observer: opts.Observer,
		now:      now,
		newID:    newID,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		source:   datasource.NewManager(),
		cfg:      forecast.DefaultConfig(),
	}
}

// Restore loads the cached configuration. Cache failures are logged and the
// default configuration is kept.
func (o *Orchestrator) Restore(ctx context.Context) forecast.Config {
	cfg, ok, err := o.cache.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("config cache unreadable, using defaults")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.cfg = forecast.Normalize(cfg)
	}
	return o.cfg
}

// Config returns the active configuration.
func (o *Orchestrator) Config() forecast.Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// SetConfig normalizes and installs cfg.
func (o *Orchestrator) SetConfig(ctx context.Context, cfg forecast.Config) forecast.Config {
	cfg = forecast.Normalize(cfg)
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
	o.persist(ctx, cfg)
	return cfg
}

// Patch merges patch into the active configuration.
func (o *Orchestrator) Patch(ctx context.Context, patch *forecast.Patch) forecast.Config {
	o.mu.Lock()
	cfg := forecast.Apply(o.cfg, patch)
	o.cfg = cfg
	o.mu.Unlock()
	o.persist(ctx, cfg)
	return cfg
}

// ResetConfig restores the default configuration and drops the cached copy.
func (o *Orchestrator) ResetConfig(ctx context.Context) forecast.Config {
	cfg := forecast.DefaultConfig()
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
	if err := o.cache.Clear(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("failed to clear config cache")
	}
	return cfg
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError returns the error of the most recent operation, if it failed.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// LastRun returns the most recent successful single forecast.
func (o *Orchestrator) LastRun() (forecast.RunResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastRun == nil {
		return forecast.RunResult{}, false
	}
	return *o.lastRun, true
}

// LastDuration returns the wall time of the most recent successful request.
func (o *Orchestrator) LastDuration() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastDuration
}

// History returns every run since the source was last cleared.
func (o *Orchestrator) History() []forecast.RunResult {
	return o.history.Runs()
}

// Leaderboard returns the ranked, deduplicated runs.
func (o *Orchestrator) Leaderboard() []forecast.LeaderboardEntry {
	return o.history.Leaderboard()
}

// Batch returns the latest benchmark result.
func (o *Orchestrator) Batch() (forecast.BatchResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.batch == nil {
		return forecast.BatchResult{}, false
	}
	return *o.batch, true
}

// Backtest returns the latest backtest result.
func (o *Orchestrator) Backtest() (forecast.BacktestResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.backtest == nil {
		return forecast.BacktestResult{}, false
	}
	return *o.backtest, true
}

// Source returns the active data source.
func (o *Orchestrator) Source() datasource.Snapshot {
	return o.source.Snapshot()
}

// begin claims the run slot. Requests while busy are refused, never queued.
func (o *Orchestrator) begin(state RunState) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Idle {
		o.logger.Debug().Str("state", o.state.String()).Str("requested", state.String()).Msg("refused while busy")
		return ErrBusy
	}
	o.state = state
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.state = Idle
	o.mu.Unlock()
}

// fail records err as the current error. Stale results never replace it.
func (o *Orchestrator) fail(op string, err error) error {
	if apperr.KindOf(err) != apperr.Stale {
		o.mu.Lock()
		o.lastErr = err
		o.mu.Unlock()
	}
	o.observe(op, err)
	o.logger.Warn().Err(err).Str("operation", op).Msg("operation failed")
	return err
}

// switchSource applies change to the data source and drops per-source
// results under one lock. History is kept. It returns the new version.
func (o *Orchestrator) switchSource(change func(*datasource.Manager) uint64) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := change(o.source)
	o.resetResultsLocked()
	return v
}

// commit runs apply under the lock only while the source is still at
// version. A false return means the result is stale.
func (o *Orchestrator) commit(version uint64, apply func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.source.Version() != version {
		return false
	}
	apply()
	return true
}

func (o *Orchestrator) resetResultsLocked() {
	o.lastRun = nil
	o.lastErr = nil
	o.lastDuration = 0
	o.batch = nil
	o.backtest = nil
}

func (o *Orchestrator) persist(ctx context.Context, cfg forecast.Config) {
	if err := o.cache.Store(ctx, cfg); err != nil {
		o.logger.Warn().Err(err).Msg("failed to persist active config")
	}
}

func (o *Orchestrator) observe(op string, err error) {
	if o.observer == nil {
		return
	}
	o.observer.ObserveRun(op, err)
	if err == nil {
		o.observer.SetLeaderboardSize(len(o.history.Leaderboard()))
	}
}
