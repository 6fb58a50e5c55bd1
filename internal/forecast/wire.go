package forecast

import "encoding/json"

// WireConfig is the flat JSON shape the forecasting service, the preset store
// and the local cache exchange. Module-specific fields are optional.
type WireConfig struct {
	ModuleType       string    `json:"module_type"`
	ModelType        string    `json:"model_type"`
	Strategy         string    `json:"strategy,omitempty"`
	Freq             string    `json:"freq"`
	SeasonLength     int       `json:"season_length"`
	Horizon          int       `json:"horizon"`
	Level            []float64 `json:"level,omitempty"`
	Lags             []int     `json:"lags,omitempty"`
	InputSize        *int      `json:"input_size,omitempty"`
	NumLayers        *int      `json:"num_layers,omitempty"`
	HiddenSize       *int      `json:"hidden_size,omitempty"`
	Epochs           *int      `json:"epochs,omitempty"`
	LogTransform     bool      `json:"log_transform"`
	TestSizeFraction *float64  `json:"test_size_fraction,omitempty"`
	MissingStrategy  string    `json:"missing_strategy,omitempty"`
	DateStart        string    `json:"date_start,omitempty"`
	DateEnd          string    `json:"date_end,omitempty"`
	DetectFrequency  bool      `json:"detect_frequency,omitempty"`
}

// Wire flattens cfg. Callers are expected to pass a normalized config.
func (c Config) Wire() WireConfig {
	w := WireConfig{
		ModuleType:       string(c.Module),
		ModelType:        c.Model,
		Strategy:         string(c.Strategy),
		Freq:             c.Frequency,
		SeasonLength:     c.SeasonLength,
		Horizon:          c.Horizon,
		LogTransform:     c.LogTransform,
		TestSizeFraction: c.TestFraction,
		MissingStrategy:  string(c.MissingStrategy),
		DateStart:        c.DateStart,
		DateEnd:          c.DateEnd,
		DetectFrequency:  c.DetectFrequency,
	}
	w.Level = make([]float64, len(c.Levels))
	for i, lvl := range c.Levels {
		w.Level[i] = float64(lvl)
	}
	switch p := c.Params.(type) {
	case MLParams:
		w.Lags = append([]int(nil), p.Lags...)
	case NeuralParams:
		w.InputSize = intPtr(p.InputSize)
		w.NumLayers = intPtr(p.NumLayers)
		w.HiddenSize = intPtr(p.HiddenSize)
		w.Epochs = intPtr(p.Epochs)
	}
	return w
}

// Config converts the wire shape back into a normalized Config.
func (w WireConfig) Config() Config {
	module := Module(w.ModuleType)
	if m, ok := ParseModule(w.ModuleType); ok {
		module = m
	}
	cfg := Config{
		Module:          module,
		Model:           w.ModelType,
		Strategy:        Strategy(w.Strategy),
		Frequency:       w.Freq,
		SeasonLength:    w.SeasonLength,
		Horizon:         w.Horizon,
		Levels:          CoerceLevels(w.Level),
		LogTransform:    w.LogTransform,
		TestFraction:    w.TestSizeFraction,
		MissingStrategy: MissingStrategy(w.MissingStrategy),
		DateStart:       w.DateStart,
		DateEnd:         w.DateEnd,
		DetectFrequency: w.DetectFrequency,
	}
	switch module {
	case MLForecast:
		cfg.Params = MLParams{Lags: append([]int(nil), w.Lags...)}
	case NeuralForecast:
		cfg.Params = NeuralParams{
			InputSize:  derefInt(w.InputSize),
			NumLayers:  derefInt(w.NumLayers),
			HiddenSize: derefInt(w.HiddenSize),
			Epochs:     derefInt(w.Epochs),
		}
	}
	return Normalize(cfg)
}

// MarshalJSON encodes a Config in its wire shape.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Wire())
}

// UnmarshalJSON decodes the wire shape and normalizes it.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w WireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = w.Config()
	return nil
}

func intPtr(v int) *int { return &v }

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
