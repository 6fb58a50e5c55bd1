package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/forecast"
)

func parseConfigFlags(t *testing.T, args ...string) (*cobra.Command, *configFlags) {
	t.Helper()
	var flags configFlags
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &flags
}

func TestConfigFlagsOnlyChangedFields(t *testing.T) {
	cmd, flags := parseConfigFlags(t, "--horizon", "24", "--levels", "95,80,150", "--log-transform=false")
	opts, err := flags.options(cmd)
	require.NoError(t, err)
	require.NotNil(t, opts.Patch)

	p := opts.Patch
	require.NotNil(t, p.Horizon)
	assert.Equal(t, 24, *p.Horizon)
	assert.Equal(t, []int{80, 95}, forecast.Apply(forecast.DefaultConfig(), p).Levels)
	require.NotNil(t, p.LogTransform)
	assert.False(t, *p.LogTransform)
	assert.Nil(t, p.Module)
	assert.Nil(t, p.SeasonLength)
	assert.Nil(t, p.Neural)
}

func TestConfigFlagsModuleFromModel(t *testing.T) {
	cmd, flags := parseConfigFlags(t, "--model", "ml/XGBoost", "--lags", "1,12")
	opts, err := flags.options(cmd)
	require.NoError(t, err)

	cfg := forecast.Apply(forecast.DefaultConfig(), opts.Patch)
	assert.Equal(t, forecast.MLForecast, cfg.Module)
	assert.Equal(t, "xgboost", cfg.Model)
	assert.Equal(t, []int{1, 12}, cfg.Lags())
}

func TestConfigFlagsErrors(t *testing.T) {
	cmd, flags := parseConfigFlags(t, "--module", "prophet")
	_, err := flags.options(cmd)
	assert.Error(t, err)

	cmd, flags = parseConfigFlags(t, "--module", "neural", "--model", "ml/linear")
	_, err = flags.options(cmd)
	assert.Error(t, err)
}

func TestConfigFlagsEmpty(t *testing.T) {
	cmd, flags := parseConfigFlags(t, "--preset", "weekly")
	opts, err := flags.options(cmd)
	require.NoError(t, err)
	assert.Nil(t, opts.Patch)
	assert.Equal(t, "weekly", opts.Preset)
}

func TestConfigFlagsNeural(t *testing.T) {
	cmd, flags := parseConfigFlags(t, "--module", "NeuralForecast", "--epochs", "5")
	opts, err := flags.options(cmd)
	require.NoError(t, err)

	cfg := forecast.Apply(forecast.DefaultConfig(), opts.Patch)
	nn, ok := cfg.Neural()
	require.True(t, ok)
	assert.Equal(t, 5, nn.Epochs)
	assert.Positive(t, nn.InputSize)
}
