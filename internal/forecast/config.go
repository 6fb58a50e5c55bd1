package forecast

import "strings"

// Module identifies the family of forecasting technique.
type Module string

const (
	StatsForecast  Module = "StatsForecast"
	MLForecast     Module = "MLForecast"
	NeuralForecast Module = "NeuralForecast"
)

// Strategy controls how a multi-step horizon is produced.
type Strategy string

const (
	OneStep            Strategy = "one_step"
	RecursiveMultiStep Strategy = "multi_step_recursive"
	DirectMultiOutput  Strategy = "multi_output_direct"
)

// MissingStrategy tells the service how to fill gaps in the series.
type MissingStrategy string

const (
	MissingNone        MissingStrategy = "none"
	MissingDrop        MissingStrategy = "drop"
	MissingForward     MissingStrategy = "ffill"
	MissingBackward    MissingStrategy = "bfill"
	MissingInterpolate MissingStrategy = "interpolate"
	MissingZero        MissingStrategy = "zero"
)

// Frequencies accepted by the forecasting service.
var Frequencies = []string{"H", "D", "W", "MS", "M", "QS", "Q", "YS", "Y"}

// Registered models per module. The first entry is the module default.
var registry = map[Module][]string{
	StatsForecast: {
		"auto_arima",
		"auto_ets",
		"arima",
		"naive",
		"seasonal_naive",
		"random_walk_with_drift",
		"window_average",
		"seasonal_window_average",
		"timegpt",
	},
	MLForecast:     {"linear", "random_forest", "xgboost", "lightgbm", "catboost"},
	NeuralForecast: {"mlp", "rnn", "lstm", "gru"},
}

// Modules lists modules in display order.
var Modules = []Module{StatsForecast, MLForecast, NeuralForecast}

const (
	defaultHorizon      = 12
	defaultSeasonLength = 7
	defaultFrequency    = "D"
	maxTestFraction     = 0.9
)

var (
	defaultLevels = []int{80, 90}
	defaultLags   = []int{1, 7, 14}
)

// Models returns the registered models for a module.
func Models(m Module) []string {
	models := registry[m]
	out := make([]string, len(models))
	copy(out, models)
	return out
}

// IsRegistered reports whether model belongs to module.
func IsRegistered(m Module, model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, candidate := range registry[m] {
		if candidate == model {
			return true
		}
	}
	return false
}

// ParseModule resolves a module name case-insensitively. Short aliases
// (stats, ml, neural) are accepted for CLI use.
func ParseModule(v string) (Module, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "statsforecast", "stats", "statistical":
		return StatsForecast, true
	case "mlforecast", "ml", "machinelearning":
		return MLForecast, true
	case "neuralforecast", "neural":
		return NeuralForecast, true
	}
	return "", false
}

// Params carries the fields that only make sense for one module.
type Params interface {
	module() Module
}

// StatisticalParams is empty: statistical models need no extra fields.
type StatisticalParams struct{}

// MLParams holds lag features for MLForecast models.
type MLParams struct {
	Lags []int
}

// NeuralParams holds the recurrent network shape for NeuralForecast models.
type NeuralParams struct {
	InputSize  int
	NumLayers  int
	HiddenSize int
	Epochs     int
}

func (StatisticalParams) module() Module { return StatsForecast }
func (MLParams) module() Module          { return MLForecast }
func (NeuralParams) module() Module      { return NeuralForecast }

// Config describes one model run.
type Config struct {
	Module          Module
	Model           string
	Strategy        Strategy
	Frequency       string
	SeasonLength    int
	Horizon         int
	Levels          []int
	Params          Params
	LogTransform    bool
	TestFraction    *float64
	MissingStrategy MissingStrategy
	DateStart       string
	DateEnd         string
	DetectFrequency bool
}

// DefaultConfig is the configuration used when nothing is cached.
func DefaultConfig() Config {
	return Normalize(Config{
		Module:          StatsForecast,
		Model:           registry[StatsForecast][0],
		Strategy:        RecursiveMultiStep,
		Frequency:       defaultFrequency,
		SeasonLength:    defaultSeasonLength,
		Horizon:         defaultHorizon,
		Levels:          append([]int(nil), defaultLevels...),
		MissingStrategy: MissingNone,
	})
}

// Label renders "module/model" as used in leaderboards.
func (c Config) Label() string {
	return string(c.Module) + "/" + c.Model
}

// Lags returns the ML lags or nil for other modules.
func (c Config) Lags() []int {
	if p, ok := c.Params.(MLParams); ok {
		return p.Lags
	}
	return nil
}

// Neural returns the neural params when the module is NeuralForecast.
func (c Config) Neural() (NeuralParams, bool) {
	p, ok := c.Params.(NeuralParams)
	return p, ok
}

// Equal compares two configs field by field.
func (c Config) Equal(o Config) bool {
	if c.Module != o.Module || c.Model != o.Model || c.Strategy != o.Strategy ||
		c.Frequency != o.Frequency || c.SeasonLength != o.SeasonLength || c.Horizon != o.Horizon ||
		c.LogTransform != o.LogTransform || c.MissingStrategy != o.MissingStrategy ||
		c.DateStart != o.DateStart || c.DateEnd != o.DateEnd || c.DetectFrequency != o.DetectFrequency {
		return false
	}
	if !intsEqual(c.Levels, o.Levels) {
		return false
	}
	if (c.TestFraction == nil) != (o.TestFraction == nil) {
		return false
	}
	if c.TestFraction != nil && *c.TestFraction != *o.TestFraction {
		return false
	}
	switch p := c.Params.(type) {
	case MLParams:
		q, ok := o.Params.(MLParams)
		return ok && intsEqual(p.Lags, q.Lags)
	case NeuralParams:
		q, ok := o.Params.(NeuralParams)
		return ok && p == q
	case StatisticalParams:
		_, ok := o.Params.(StatisticalParams)
		return ok
	default:
		return o.Params == nil
	}
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
