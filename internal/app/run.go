package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"forecast-workbench/internal/forecast"
)

// Forecast runs one forecast on the selected source and prints it.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	s, err := a.prepare(ctx, opts.Source, opts.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.orch.RunForecast(ctx, nil)
	if err != nil {
		return err
	}

	a.printRun(run)

	if opts.CSVPath != "" || opts.PNGPath != "" {
		history := s.orch.Source().Series
		if err := a.writeExports(run, history, opts.CSVPath, opts.PNGPath, a.Config.ResolveMaxPoints(0)); err != nil {
			return err
		}
	}
	return nil
}

// Benchmark compares several configurations on one train/test split.
func (a *App) Benchmark(ctx context.Context, opts BenchmarkOptions) error {
	s, err := a.prepare(ctx, opts.Source, opts.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	cfgs, err := a.buildConfigs(ctx, s, opts.Models, opts.Presets)
	if err != nil {
		return err
	}

	res, err := s.orch.RunBenchmark(ctx, cfgs)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "benchmark of %d configs on %s (%s)\n", len(cfgs), s.orch.Source().Label(), res.Duration.Round(timeRounding))
	a.printLeaderboardRows(res.Leaderboard)
	return nil
}

// Backtest runs a rolling-window backtest, or prints the window layout when
// DryRun is set.
func (a *App) Backtest(ctx context.Context, opts BacktestOptions) error {
	s, err := a.prepare(ctx, opts.Source, opts.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	cfgs, err := a.buildConfigs(ctx, s, opts.Models, opts.Presets)
	if err != nil {
		return err
	}

	if opts.DryRun {
		rows := s.orch.Source().Rows()
		horizon := s.orch.Config().Horizon
		slices := forecast.BacktestSlices(rows, horizon, opts.Windows, opts.Step)
		if len(slices) == 0 {
			fmt.Fprintf(a.Out, "series of %d rows is too short for horizon %d\n", rows, horizon)
			return nil
		}
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Window\tTrain\tTest rows\tTest size")
		for _, sl := range slices {
			fmt.Fprintf(writer, "%d\t[0,%d)\t[%d,%d)\t%d\n", sl.Window, sl.TrainEnd, sl.TestStart, sl.TestEnd, sl.TestSize())
		}
		writer.Flush()
		return nil
	}

	res, err := s.orch.RunBacktest(ctx, cfgs, opts.Windows, opts.Step)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "backtest: %d windows, step %d (%s)\n", res.Windows, res.StepSize, res.Duration.Round(timeRounding))
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Model\tWindow\tTrain\tTest\tMAE\tRMSE\tMAPE")
	for _, model := range res.Results {
		windowMetrics := make([]forecast.Metrics, 0, len(model.Windows))
		for _, w := range model.Windows {
			windowMetrics = append(windowMetrics, w.Metrics)
			fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
				model.Config.Label(), w.Window, w.TrainSize, w.TestSize,
				formatMetric(w.Metrics.MAE, 3), formatMetric(w.Metrics.RMSE, 3), formatMetric(w.Metrics.MAPE, 2))
		}
		aggregate := model.Aggregate
		if aggregate.MAE == nil && aggregate.RMSE == nil && aggregate.MAPE == nil {
			aggregate = forecast.AverageMetrics(windowMetrics)
		}
		fmt.Fprintf(writer, "%s\tmean\t\t\t%s\t%s\t%s\n",
			model.Config.Label(),
			formatMetric(aggregate.MAE, 3), formatMetric(aggregate.RMSE, 3), formatMetric(aggregate.MAPE, 2))
	}
	writer.Flush()

	if len(res.Leaderboard) > 0 {
		fmt.Fprintln(a.Out)
		a.printLeaderboardRows(res.Leaderboard)
	}
	return nil
}

// Datasets lists the sample catalogue, or describes one dataset.
func (a *App) Datasets(ctx context.Context, id string, limit int) error {
	svc, err := a.newClient()
	if err != nil {
		return err
	}

	if strings.TrimSpace(id) == "" {
		infos, err := svc.ListDatasets(ctx)
		if err != nil {
			return err
		}
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tName\tFreq\tSeason\tHorizon\tModule\tModels\tRows")
		for _, info := range infos {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%d\n",
				info.ID, info.Name, info.Frequency, info.SeasonLength, info.RecommendedHorizon,
				info.RecommendedModule, strings.Join(info.RecommendedModels, ","), info.Rows)
		}
		writer.Flush()
		return nil
	}

	info, records, err := svc.GetDataset(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s (%s)\n%s\n", info.Name, info.ID, info.Description)
	fmt.Fprintf(a.Out, "freq %s, season %d, horizon %d, %s [%s], %d rows\n",
		info.Frequency, info.SeasonLength, info.RecommendedHorizon,
		info.RecommendedModule, strings.Join(info.RecommendedModels, ","), len(records))

	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ds\ty")
	for _, rec := range records[:limit] {
		fmt.Fprintf(writer, "%s\t%s\n", rec.DS, formatValue(rec.Y))
	}
	writer.Flush()
	return nil
}

// buildConfigs expands model specs and preset names into configurations
// derived from the active one.
func (a *App) buildConfigs(ctx context.Context, s *session, models, presetRefs []string) ([]forecast.Config, error) {
	base := s.orch.Config()
	cfgs := make([]forecast.Config, 0, len(models)+len(presetRefs))
	for _, spec := range models {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		cfg, err := parseModelSpec(base, spec)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	for _, ref := range presetRefs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		preset, err := s.presets.Find(ctx, ref)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, preset.Config)
	}
	return cfgs, nil
}

// parseModelSpec reads "Module/model" or a bare model name. A bare name is
// looked up in the base module first, then in the others.
func parseModelSpec(base forecast.Config, spec string) (forecast.Config, error) {
	spec = strings.TrimSpace(spec)
	cfg := base

	if moduleName, model, ok := strings.Cut(spec, "/"); ok {
		module, known := forecast.ParseModule(moduleName)
		if !known {
			return forecast.Config{}, fmt.Errorf("unknown module %q", moduleName)
		}
		if !forecast.IsRegistered(module, strings.ToLower(strings.TrimSpace(model))) {
			return forecast.Config{}, fmt.Errorf("model %q is not available in %s", model, module)
		}
		if module != cfg.Module {
			cfg.Params = nil
		}
		cfg.Module = module
		cfg.Model = strings.ToLower(strings.TrimSpace(model))
		return forecast.Normalize(cfg), nil
	}

	model := strings.ToLower(spec)
	candidates := append([]forecast.Module{base.Module}, forecast.Modules...)
	for _, module := range candidates {
		if forecast.IsRegistered(module, model) {
			if module != cfg.Module {
				cfg.Params = nil
			}
			cfg.Module = module
			cfg.Model = model
			return forecast.Normalize(cfg), nil
		}
	}
	return forecast.Config{}, fmt.Errorf("unknown model %q", spec)
}

func (a *App) printRun(run forecast.RunResult) {
	fmt.Fprintf(a.Out, "run %s: %s, horizon %d (%s)\n",
		run.RunID, run.Config.Label(), len(run.Forecast), run.Duration.Round(timeRounding))
	fmt.Fprintf(a.Out, "MAE %s  RMSE %s  MAPE %s\n",
		formatMetric(run.Metrics.MAE, 3), formatMetric(run.Metrics.RMSE, 3), formatMetric(run.Metrics.MAPE, 2))

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	header := []string{"ds", "forecast"}
	for _, iv := range run.Intervals {
		header = append(header, fmt.Sprintf("lo-%d", iv.Level), fmt.Sprintf("hi-%d", iv.Level))
	}
	fmt.Fprintln(writer, strings.Join(header, "\t"))
	for i, ts := range run.Timestamps {
		row := []string{ts, formatValue(run.Forecast[i])}
		for _, iv := range run.Intervals {
			row = append(row, formatValue(iv.Lower[i]), formatValue(iv.Upper[i]))
		}
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	writer.Flush()
}

func (a *App) printLeaderboardRows(rows []forecast.LeaderboardRow) {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tModel\tModule\tMAE\tRMSE\tMAPE")
	for i, row := range rows {
		label := row.ModelLabel
		if label == "" {
			label = row.Config.Model
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, label, row.Module,
			formatMetric(row.Metrics.MAE, 3), formatMetric(row.Metrics.RMSE, 3), formatMetric(row.Metrics.MAPE, 2))
	}
	writer.Flush()
}
