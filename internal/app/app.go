package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"forecast-workbench/internal/cache"
	"forecast-workbench/internal/client"
	"forecast-workbench/internal/config"
	"forecast-workbench/internal/forecast"
	"forecast-workbench/internal/ingest"
	"forecast-workbench/internal/metrics"
	"forecast-workbench/internal/notify"
	"forecast-workbench/internal/orchestrator"
	"forecast-workbench/internal/presets"
	"forecast-workbench/internal/storage"
	"forecast-workbench/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	collector *metrics.Collector
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// SourceOptions pick the data source for a command: a bundled sample or a
// local CSV file uploaded to the service.
type SourceOptions struct {
	Sample string
	File   string
	DSCol  string
	YCol   string
}

// IsZero reports whether no source was requested.
func (s SourceOptions) IsZero() bool {
	return strings.TrimSpace(s.Sample) == "" && strings.TrimSpace(s.File) == ""
}

// ConfigOptions adjust the active configuration before a command runs. The
// preset is applied first, then the patch.
type ConfigOptions struct {
	Preset string
	Patch  *forecast.Patch
}

// ForecastOptions configure a single forecast run.
type ForecastOptions struct {
	Source  SourceOptions
	Config  ConfigOptions
	CSVPath string
	PNGPath string
}

// BenchmarkOptions configure a multi-model comparison on one split.
type BenchmarkOptions struct {
	Source  SourceOptions
	Config  ConfigOptions
	Models  []string
	Presets []string
}

// BacktestOptions configure a rolling-window backtest.
type BacktestOptions struct {
	Source  SourceOptions
	Config  ConfigOptions
	Models  []string
	Presets []string
	Windows int
	Step    int
	DryRun  bool
}

// ExportOptions configure a forecast export.
type ExportOptions struct {
	Source    SourceOptions
	Config    ConfigOptions
	RunID     string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Source string
}

// LeaderboardOptions configure the archive leaderboard.
type LeaderboardOptions struct {
	Limit  int
	Source string
}

// WatchOptions configure periodic re-runs.
type WatchOptions struct {
	Source        SourceOptions
	Config        ConfigOptions
	Models        []string
	Presets       []string
	Ticks         int
	AnnounceFirst bool
}

// PruneOptions configure archive housekeeping.
type PruneOptions struct {
	Before time.Time
	DryRun bool
}

// session bundles the dependencies one command works with.
type session struct {
	client  *client.Client
	orch    *orchestrator.Orchestrator
	presets *presets.Adapter
	store   *storage.Store
	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (a *App) metricsCollector() (*metrics.Collector, error) {
	if !a.Config.Metrics.Enabled {
		return nil, nil
	}
	if a.collector != nil {
		return a.collector, nil
	}
	collector, err := metrics.NewCollector(a.Config.Metrics.Namespace)
	if err != nil {
		return nil, err
	}
	a.collector = collector
	return collector, nil
}

func (a *App) newClient() (*client.Client, error) {
	opts := client.Options{
		BaseURL:   a.Config.Service.BaseURL,
		Timeout:   a.Config.Service.Timeout,
		UserAgent: a.Config.Service.UserAgent,
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.UserAgent()
	}
	collector, err := a.metricsCollector()
	if err != nil {
		return nil, err
	}
	if collector != nil {
		opts.Transport = collector.InstrumentTransport(http.DefaultTransport)
	}
	return client.New(opts, a.Logger), nil
}

func (a *App) newCache() (cache.ConfigCache, func(), error) {
	cfg := a.Config.Cache
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewFile(cfg.Path, cfg.Key), func() {}, nil
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		closer := func() {
			if err := rdb.Close(); err != nil {
				a.Logger.Debug().Err(err).Msg("close redis client")
			}
		}
		return cache.NewRedis(rdb, cfg.Key, cfg.TTL), closer, nil
	case config.CacheNone, "":
		return cache.Noop{}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func (a *App) requireStore(ctx context.Context, action string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("database not configured; cannot %s", action)
	}
	return store, closeStore, nil
}

func (a *App) newNotifier() notify.Notifier {
	if a.Config.Notify.Telegram.Enabled {
		cfg := a.Config.Notify.Telegram
		return notify.NewTelegramNotifier(notify.TelegramOptions{
			BotToken: cfg.BotToken,
			ChatID:   cfg.ChatID,
			APIBase:  cfg.APIBase,
			Timeout:  cfg.Timeout,
		}, a.Logger)
	}
	return notify.NewLogNotifier(a.Logger)
}

// openSession wires the service client, config cache, optional run archive
// and the orchestrator, then restores the cached configuration.
func (a *App) openSession(ctx context.Context) (*session, error) {
	svc, err := a.newClient()
	if err != nil {
		return nil, err
	}

	s := &session{client: svc, presets: presets.NewAdapter(svc, a.Logger)}

	configCache, closeCache, err := a.newCache()
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeCache)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("run archive unavailable; runs will not be archived")
	}
	opts := orchestrator.Options{Engine: svc, Cache: configCache}
	if store != nil {
		s.store = store
		s.closers = append(s.closers, closeStore)
		opts.Archive = store
	}
	collector, err := a.metricsCollector()
	if err != nil {
		s.Close()
		return nil, err
	}
	if collector != nil {
		opts.Observer = collector
	}

	s.orch = orchestrator.New(opts, a.Logger)
	s.orch.Restore(ctx)
	return s, nil
}

// applyConfig loads the preset, if any, then merges the patch into the active
// configuration.
func (a *App) applyConfig(ctx context.Context, s *session, opts ConfigOptions) (forecast.Config, error) {
	if ref := strings.TrimSpace(opts.Preset); ref != "" {
		preset, err := s.presets.Find(ctx, ref)
		if err != nil {
			return forecast.Config{}, err
		}
		s.orch.SetConfig(ctx, preset.Config)
		a.Logger.Debug().Str("preset", preset.Name).Msg("preset applied")
	}
	return s.orch.Patch(ctx, opts.Patch), nil
}

// selectSource loads the requested sample or uploads the requested file.
func (a *App) selectSource(ctx context.Context, s *session, src SourceOptions) error {
	switch {
	case strings.TrimSpace(src.Sample) != "":
		_, err := s.orch.LoadSample(ctx, strings.TrimSpace(src.Sample))
		return err
	case strings.TrimSpace(src.File) != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return fmt.Errorf("read %s: %w", src.File, err)
		}
		_, err = s.orch.Upload(ctx, filepath.Base(src.File), data, ingest.Mapping{
			TimestampColumn: src.DSCol,
			ValueColumn:     src.YCol,
		})
		return err
	}
	return orchestrator.ErrNoData
}

// prepare opens a session, selects the source and applies the config options.
// Source recommendations apply before the user's options so explicit flags win.
func (a *App) prepare(ctx context.Context, src SourceOptions, cfgOpts ConfigOptions) (*session, error) {
	s, err := a.openSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.selectSource(ctx, s, src); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := a.applyConfig(ctx, s, cfgOpts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Health reports the forecasting service status.
func (a *App) Health(ctx context.Context) error {
	svc, err := a.newClient()
	if err != nil {
		return err
	}
	status, err := svc.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s: %s\n", svc.BaseURL(), status)
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
