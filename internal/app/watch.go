package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"forecast-workbench/internal/forecast"
	"forecast-workbench/internal/notify"
	"forecast-workbench/internal/scheduler"
)

// Watch re-runs the selected configurations on every scheduler tick and
// sends a notification whenever the session leaderboard leader changes.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopMetrics, err := a.serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	s, err := a.prepare(ctx, opts.Source, opts.Config)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; runs will not be archived")
	}

	cfgs, err := a.buildConfigs(ctx, s, opts.Models, opts.Presets)
	if err != nil {
		return err
	}
	if len(cfgs) == 0 {
		cfgs = []forecast.Config{s.orch.Config()}
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		AlignToStart:   a.Config.Watch.Align,
		StartupDelay:   a.Config.Watch.StartupDelay,
		RunImmediately: true,
		MaxTicks:       opts.Ticks,
	}, a.Logger)
	if err != nil {
		return err
	}

	notifier := a.newNotifier()
	var tracker notify.LeaderTracker
	source := opts.Source
	ticks := 0

	tick := func(ctx context.Context, at time.Time) error {
		ticks++
		// files are re-read so appended rows are picked up
		if source.File != "" && ticks > 1 {
			if err := a.selectSource(ctx, s, source); err != nil {
				return err
			}
		}

		var errs []error
		for _, cfg := range cfgs {
			if _, err := s.orch.RunConfig(ctx, cfg); err != nil {
				errs = append(errs, err)
			}
		}

		entries := s.orch.Leaderboard()
		note, changed := tracker.Observe(entries, s.orch.Source().Label(), at, opts.AnnounceFirst)
		if changed {
			if err := notifier.Notify(ctx, note); err != nil {
				errs = append(errs, err)
			}
		}
		a.Logger.Info().
			Time("tick", at).
			Int("runs", len(s.orch.History())).
			Str("leader", tracker.Leader()).
			Msg("watch tick complete")
		return errors.Join(errs...)
	}

	a.Logger.Info().
		Dur("interval", a.Config.Watch.Interval).
		Int("configs", len(cfgs)).
		Msg("starting watch")
	err = sched.Run(ctx, tick)
	if err != nil && !isCanceled(err) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	if len(s.orch.Leaderboard()) > 0 {
		a.printEntries(s.orch.Leaderboard())
	}
	a.Logger.Info().Msg("watch stopped")
	return nil
}

// serveMetrics exposes /metrics when enabled. The returned func shuts the
// server down.
func (a *App) serveMetrics() (func(), error) {
	collector, err := a.metricsCollector()
	if err != nil {
		return nil, err
	}
	if collector == nil {
		return func() {}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              a.Config.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server failed")
		}
	}()
	a.Logger.Info().Str("addr", srv.Addr).Msg("serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}, nil
}
