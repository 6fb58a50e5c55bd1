package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
	"forecast-workbench/internal/forecast"
)

// sourceFlags select the data source shared by the run commands.
type sourceFlags struct {
	sample string
	file   string
	dsCol  string
	yCol   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sample, "sample", "", "Bundled sample dataset id")
	cmd.Flags().StringVar(&f.file, "file", "", "CSV file to upload")
	cmd.Flags().StringVar(&f.dsCol, "ds", "", "Timestamp column of --file (inferred when empty)")
	cmd.Flags().StringVar(&f.yCol, "y", "", "Value column of --file (inferred when empty)")
	cmd.MarkFlagsMutuallyExclusive("sample", "file")
}

func (f *sourceFlags) options() app.SourceOptions {
	return app.SourceOptions{Sample: f.sample, File: f.file, DSCol: f.dsCol, YCol: f.yCol}
}

// configFlags override fields of the active configuration. Only flags the
// user set end up in the patch.
type configFlags struct {
	preset       string
	module       string
	model        string
	strategy     string
	freq         string
	season       int
	horizon      int
	levels       []float64
	lags         []int
	inputSize    int
	numLayers    int
	hiddenSize   int
	epochs       int
	logTransform bool
	testFraction float64
	noHoldout    bool
	missing      string
	dateStart    string
	dateEnd      string
	detectFreq   bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.preset, "preset", "", "Saved preset (id or name) to start from")
	fl.StringVar(&f.module, "module", "", "Module: StatsForecast, MLForecast or NeuralForecast")
	fl.StringVar(&f.model, "model", "", "Model name, optionally as module/model")
	fl.StringVar(&f.strategy, "strategy", "", "Strategy: one_step, multi_step_recursive, multi_output_direct")
	fl.StringVar(&f.freq, "freq", "", "Series frequency (H, D, W, MS, M, QS, Q, YS, Y)")
	fl.IntVar(&f.season, "season", 0, "Season length")
	fl.IntVar(&f.horizon, "horizon", 0, "Forecast horizon")
	fl.Float64SliceVar(&f.levels, "levels", nil, "Prediction interval levels, e.g. 80,95")
	fl.IntSliceVar(&f.lags, "lags", nil, "Lags for MLForecast models")
	fl.IntVar(&f.inputSize, "input-size", 0, "NeuralForecast input size")
	fl.IntVar(&f.numLayers, "num-layers", 0, "NeuralForecast layers (1 or 2)")
	fl.IntVar(&f.hiddenSize, "hidden-size", 0, "NeuralForecast hidden size")
	fl.IntVar(&f.epochs, "epochs", 0, "NeuralForecast training epochs")
	fl.BoolVar(&f.logTransform, "log-transform", false, "Fit on log(1+y)")
	fl.Float64Var(&f.testFraction, "test-fraction", 0, "Holdout fraction (0 disables the holdout)")
	fl.BoolVar(&f.noHoldout, "no-holdout", false, "Clear the holdout fraction")
	fl.StringVar(&f.missing, "missing", "", "Missing value strategy: none, drop, ffill, bfill, interpolate, zero")
	fl.StringVar(&f.dateStart, "date-start", "", "Only use rows on or after this timestamp")
	fl.StringVar(&f.dateEnd, "date-end", "", "Only use rows on or before this timestamp")
	fl.BoolVar(&f.detectFreq, "detect-freq", false, "Let the service infer the frequency")
}

func (f *configFlags) options(cmd *cobra.Command) (app.ConfigOptions, error) {
	fl := cmd.Flags()
	patch := &forecast.Patch{}

	moduleName := f.module
	model := f.model
	if name, m, ok := strings.Cut(model, "/"); ok {
		if fl.Changed("module") && !strings.EqualFold(name, f.module) {
			return app.ConfigOptions{}, fmt.Errorf("--model %q conflicts with --module %q", f.model, f.module)
		}
		moduleName, model = name, m
	}
	if moduleName != "" {
		module, ok := forecast.ParseModule(moduleName)
		if !ok {
			return app.ConfigOptions{}, fmt.Errorf("unknown module %q", moduleName)
		}
		patch.Module = &module
	}
	if model != "" {
		model = strings.ToLower(strings.TrimSpace(model))
		patch.Model = &model
	}
	if fl.Changed("strategy") {
		strategy := forecast.Strategy(f.strategy)
		patch.Strategy = &strategy
	}
	if fl.Changed("freq") {
		patch.Frequency = &f.freq
	}
	if fl.Changed("season") {
		patch.SeasonLength = &f.season
	}
	if fl.Changed("horizon") {
		patch.Horizon = &f.horizon
	}
	if fl.Changed("levels") {
		patch.Levels = forecast.CoerceLevels(f.levels)
	}
	if fl.Changed("lags") {
		patch.Lags = f.lags
	}
	if fl.Changed("input-size") || fl.Changed("num-layers") || fl.Changed("hidden-size") || fl.Changed("epochs") {
		patch.Neural = &forecast.NeuralParams{
			InputSize:  f.inputSize,
			NumLayers:  f.numLayers,
			HiddenSize: f.hiddenSize,
			Epochs:     f.epochs,
		}
	}
	if fl.Changed("log-transform") {
		patch.LogTransform = &f.logTransform
	}
	if fl.Changed("test-fraction") {
		patch.TestFraction = &f.testFraction
	}
	patch.ClearHoldout = f.noHoldout
	if fl.Changed("missing") {
		missing := forecast.MissingStrategy(f.missing)
		patch.MissingStrategy = &missing
	}
	if fl.Changed("date-start") {
		patch.DateStart = &f.dateStart
	}
	if fl.Changed("date-end") {
		patch.DateEnd = &f.dateEnd
	}
	if fl.Changed("detect-freq") {
		patch.DetectFrequency = &f.detectFreq
	}

	opts := app.ConfigOptions{Preset: f.preset}
	if !patch.IsZero() {
		opts.Patch = patch
	}
	return opts, nil
}
