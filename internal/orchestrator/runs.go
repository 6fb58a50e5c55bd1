package orchestrator

import (
	"context"

	"forecast-workbench/internal/forecast"
)

// RunForecast applies patch to the active configuration and runs a single
// forecast against the active source. Success appends to history.
func (o *Orchestrator) RunForecast(ctx context.Context, patch *forecast.Patch) (forecast.RunResult, error) {
	return o.runForecast(ctx, func() forecast.Config { return o.Patch(ctx, patch) })
}

// RunConfig runs a single forecast with cfg. The active configuration and
// its cached copy are left untouched.
func (o *Orchestrator) RunConfig(ctx context.Context, cfg forecast.Config) (forecast.RunResult, error) {
	return o.runForecast(ctx, func() forecast.Config { return forecast.Normalize(cfg) })
}

func (o *Orchestrator) runForecast(ctx context.Context, resolve func() forecast.Config) (forecast.RunResult, error) {
	const op = "forecast"
	if err := o.begin(Forecasting); err != nil {
		return forecast.RunResult{}, err
	}
	defer o.end()

	cfg := resolve()

	snap := o.source.Snapshot()
	ref := snap.Ref()
	if !ref.Valid() {
		return forecast.RunResult{}, o.fail(op, ErrNoData)
	}

	start := o.now()
	out, err := o.engine.Forecast(ctx, cfg, ref)
	elapsed := o.now().Sub(start)
	if err != nil {
		return forecast.RunResult{}, o.fail(op, err)
	}
	run := forecast.RunResult{
		RunID:      o.newID(),
		Config:     out.Config,
		Timestamps: out.Timestamps,
		Forecast:   out.Forecast,
		Intervals:  out.Intervals,
		Metrics:    out.Metrics,
		Fitted:     out.Fitted,
		Duration:   elapsed,
		CreatedAt:  o.now(),
	}
	applied := o.commit(snap.Version, func() {
		run = o.history.Append(run)
		o.lastRun = &run
		o.lastErr = nil
		o.lastDuration = elapsed
	})
	if !applied {
		return forecast.RunResult{}, o.fail(op, ErrStaleResult)
	}

	o.logger.Info().
		Str("run_id", run.RunID).
		Str("model", run.Config.Label()).
		Int("horizon", len(run.Forecast)).
		Dur("elapsed", elapsed).
		Msg("forecast complete")

	if o.archive != nil {
		if err := o.archive.SaveRun(ctx, run, snap.Label()); err != nil {
			o.logger.Warn().Err(err).Str("run_id", run.RunID).Msg("failed to archive run")
		}
	}
	o.observe(op, nil)
	return run, nil
}

// RunBenchmark runs several configurations on one split. The result is kept
// apart from the single-run history.
func (o *Orchestrator) RunBenchmark(ctx context.Context, cfgs []forecast.Config) (forecast.BatchResult, error) {
	const op = "benchmark"
	if err := o.begin(Benchmarking); err != nil {
		return forecast.BatchResult{}, err
	}
	defer o.end()

	normalized := normalizeAll(cfgs)
	if len(normalized) == 0 {
		return forecast.BatchResult{}, o.fail(op, ErrEmptySelection)
	}
	snap := o.source.Snapshot()
	ref := snap.Ref()
	if !ref.Valid() {
		return forecast.BatchResult{}, o.fail(op, ErrNoData)
	}

	start := o.now()
	res, err := o.engine.ForecastBatch(ctx, normalized, ref)
	elapsed := o.now().Sub(start)
	if err != nil {
		return forecast.BatchResult{}, o.fail(op, err)
	}
	res.Duration = elapsed
	res.CreatedAt = o.now()

	applied := o.commit(snap.Version, func() {
		o.batch = &res
		o.lastErr = nil
		o.lastDuration = elapsed
	})
	if !applied {
		return forecast.BatchResult{}, o.fail(op, ErrStaleResult)
	}

	o.logger.Info().Int("configs", len(normalized)).Dur("elapsed", elapsed).Msg("benchmark complete")
	o.observe(op, nil)
	return res, nil
}

// RunBacktest evaluates configurations over rolling windows. windows and
// step below one are raised to one.
func (o *Orchestrator) RunBacktest(ctx context.Context, cfgs []forecast.Config, windows, step int) (forecast.BacktestResult, error) {
	const op = "backtest"
	if err := o.begin(Backtesting); err != nil {
		return forecast.BacktestResult{}, err
	}
	defer o.end()

	windows = max(windows, 1)
	step = max(step, 1)

	normalized := normalizeAll(cfgs)
	if len(normalized) == 0 {
		return forecast.BacktestResult{}, o.fail(op, ErrEmptySelection)
	}
	snap := o.source.Snapshot()
	ref := snap.Ref()
	if !ref.Valid() {
		return forecast.BacktestResult{}, o.fail(op, ErrNoData)
	}

	start := o.now()
	res, err := o.engine.Backtest(ctx, normalized, windows, step, ref)
	elapsed := o.now().Sub(start)
	if err != nil {
		return forecast.BacktestResult{}, o.fail(op, err)
	}
	res.Windows = windows
	res.StepSize = step
	res.Duration = elapsed
	res.CreatedAt = o.now()

	applied := o.commit(snap.Version, func() {
		o.backtest = &res
		o.lastErr = nil
		o.lastDuration = elapsed
	})
	if !applied {
		return forecast.BacktestResult{}, o.fail(op, ErrStaleResult)
	}

	o.logger.Info().
		Int("configs", len(normalized)).
		Int("windows", windows).
		Int("step", step).
		Dur("elapsed", elapsed).
		Msg("backtest complete")
	o.observe(op, nil)
	return res, nil
}

func normalizeAll(cfgs []forecast.Config) []forecast.Config {
	out := make([]forecast.Config, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, forecast.Normalize(cfg))
	}
	return out
}
