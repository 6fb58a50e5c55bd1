package forecast

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLevels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Levels = []int{95, 80, 95, 0, 100, 50}

	got := Normalize(cfg)
	assert.Equal(t, []int{50, 80, 95}, got.Levels)

	cfg.Levels = nil
	assert.Equal(t, []int{80, 90}, Normalize(cfg).Levels)
}

func TestCoerceLevelsDropsNaN(t *testing.T) {
	levels := CoerceLevels([]float64{90, math.NaN(), 79.6, math.Inf(1)})
	assert.Equal(t, []int{90, 80}, levels)
}

func TestNormalizeReplacesUnknownModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Module = MLForecast
	cfg.Model = "auto_arima"

	got := Normalize(cfg)
	assert.Equal(t, "linear", got.Model)

	cfg.Model = "  XGBoost "
	assert.Equal(t, "xgboost", Normalize(cfg).Model)
}

func TestNormalizeDowngradesDirectForStats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = DirectMultiOutput
	assert.Equal(t, RecursiveMultiStep, Normalize(cfg).Strategy)

	cfg.Module = NeuralForecast
	assert.Equal(t, DirectMultiOutput, Normalize(cfg).Strategy)
}

func TestNormalizeTestFraction(t *testing.T) {
	cases := []struct {
		name string
		in   *float64
		want *float64
	}{
		{"absent", nil, nil},
		{"zero kept", Float(0), Float(0)},
		{"valid", Float(0.2), Float(0.2)},
		{"upper bound excluded", Float(0.9), nil},
		{"negative", Float(-0.1), nil},
		{"nan", Float(math.NaN()), nil},
		{"inf", Float(math.Inf(1)), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TestFraction = tc.in
			got := Normalize(cfg).TestFraction
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestNormalizeModuleParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params = MLParams{Lags: []int{3}}
	assert.Equal(t, StatisticalParams{}, Normalize(cfg).Params, "lags pruned for stats")

	cfg.Module = MLForecast
	cfg.Params = MLParams{}
	assert.Equal(t, []int{1, 7, 14}, Normalize(cfg).Lags())

	cfg.Params = MLParams{Lags: []int{12, -1, 3, 12}}
	assert.Equal(t, []int{3, 12}, Normalize(cfg).Lags())

	cfg.Module = NeuralForecast
	cfg.Params = NeuralParams{NumLayers: 3, HiddenSize: 0, Epochs: -2}
	nn, ok := Normalize(cfg).Neural()
	require.True(t, ok)
	assert.Equal(t, NeuralParams{InputSize: 32, NumLayers: 1, HiddenSize: 16, Epochs: 20}, nn)

	cfg.Params = NeuralParams{InputSize: 64, NumLayers: 2, HiddenSize: 8, Epochs: 5}
	nn, _ = Normalize(cfg).Neural()
	assert.Equal(t, NeuralParams{InputSize: 64, NumLayers: 2, HiddenSize: 8, Epochs: 5}, nn)
}

func TestNormalizeRepairsShape(t *testing.T) {
	got := Normalize(Config{Module: "bogus", Strategy: "sideways", Frequency: "ms", MissingStrategy: "FFILL"})
	assert.Equal(t, StatsForecast, got.Module)
	assert.Equal(t, "auto_arima", got.Model)
	assert.Equal(t, RecursiveMultiStep, got.Strategy)
	assert.Equal(t, "MS", got.Frequency)
	assert.Equal(t, MissingForward, got.MissingStrategy)
	assert.Equal(t, 12, got.Horizon)
	assert.Equal(t, 1, got.SeasonLength)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []Config{
		{},
		DefaultConfig(),
		{Module: MLForecast, Model: "XGBOOST", Levels: []int{99, 1, 1}, TestFraction: Float(0.95), Params: NeuralParams{}},
		{Module: NeuralForecast, Strategy: DirectMultiOutput, Params: MLParams{Lags: []int{2}}, TestFraction: Float(0.3)},
		{Module: StatsForecast, Model: "timegpt", Strategy: DirectMultiOutput, Frequency: "w", Horizon: -3},
	}
	for _, m := range Modules {
		for _, model := range append(Models(m), "unknown") {
			inputs = append(inputs, Config{Module: m, Model: model, Levels: []int{0, 200, 50}})
		}
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.True(t, once.Equal(twice), "normalize not idempotent for %+v", in)
		assert.True(t, IsRegistered(once.Module, once.Model), "model %q not registered for %s", once.Model, once.Module)
	}
}

func TestApplyPatch(t *testing.T) {
	base := DefaultConfig()
	module := NeuralForecast
	model := "LSTM"
	horizon := 24

	got := Apply(base, &Patch{Module: &module, Model: &model, Horizon: &horizon, TestFraction: Float(0.25)})
	assert.Equal(t, NeuralForecast, got.Module)
	assert.Equal(t, "lstm", got.Model)
	assert.Equal(t, 24, got.Horizon)
	require.NotNil(t, got.TestFraction)
	assert.Equal(t, 0.25, *got.TestFraction)
	_, ok := got.Neural()
	assert.True(t, ok)

	cleared := Apply(got, &Patch{ClearHoldout: true})
	assert.Nil(t, cleared.TestFraction)

	assert.True(t, base.Equal(Apply(base, nil)))
	assert.True(t, (&Patch{}).IsZero())
}

func TestConfigJSONRoundTripsThroughNormalizer(t *testing.T) {
	raw := `{"module_type":"mlforecast","model_type":"RANDOM_FOREST","freq":"d","season_length":7,"horizon":14,"level":[95,80.4,95],"lags":[7,1],"input_size":16,"log_transform":true,"test_size_fraction":0.2}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, MLForecast, cfg.Module)
	assert.Equal(t, "random_forest", cfg.Model)
	assert.Equal(t, []int{80, 95}, cfg.Levels)
	assert.Equal(t, []int{1, 7}, cfg.Lags())
	assert.Equal(t, "D", cfg.Frequency)

	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, "MLForecast", wire["module_type"])
	assert.NotContains(t, wire, "input_size")
}
