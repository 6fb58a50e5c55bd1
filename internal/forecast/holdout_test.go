package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHoldout(t *testing.T) {
	withFraction := func(f float64) Config {
		cfg := DefaultConfig()
		cfg.TestFraction = Float(f)
		return cfg
	}

	assert.Equal(t, 0, ComputeHoldout(100, DefaultConfig()), "no fraction means no holdout")
	assert.Equal(t, 20, ComputeHoldout(100, withFraction(0.2)))
	assert.Equal(t, 1, ComputeHoldout(10, withFraction(0.01)), "ceil keeps at least one row")
	assert.Equal(t, 0, ComputeHoldout(1, withFraction(0.5)))
	assert.Equal(t, 0, ComputeHoldout(0, withFraction(0.5)))
	assert.Equal(t, 0, ComputeHoldout(50, withFraction(0)))
	assert.Equal(t, 1, ComputeHoldout(2, withFraction(0.89)))
}

func TestComputeHoldoutRange(t *testing.T) {
	fractions := []float64{0, 0.01, 0.1, 0.33, 0.5, 0.75, 0.899}
	for rows := 0; rows <= 60; rows++ {
		for _, f := range fractions {
			cfg := DefaultConfig()
			cfg.TestFraction = Float(f)
			got := ComputeHoldout(rows, cfg)
			if rows <= 1 {
				assert.Equal(t, 0, got)
				continue
			}
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, rows-1)
		}
	}
}

func TestSplit(t *testing.T) {
	series := make(Series, 10)
	for i := range series {
		series[i] = Record{DS: string(rune('a' + i)), Y: float64(i)}
	}
	cfg := DefaultConfig()
	cfg.TestFraction = Float(0.3)

	train, test := Split(series, cfg)
	assert.Len(t, train, 7)
	assert.Len(t, test, 3)
	assert.Equal(t, 7.0, test[0].Y)
}

func TestBacktestSlices(t *testing.T) {
	slices := BacktestSlices(30, 5, 3, 1)
	assert.Len(t, slices, 3)
	for i, s := range slices {
		assert.Equal(t, i+1, s.Window)
		assert.GreaterOrEqual(t, s.TrainSize(), 2)
		assert.Positive(t, s.TestSize())
	}
	assert.Equal(t, 15, slices[0].TestStart)

	short := BacktestSlices(30, 12, 3, 1)
	assert.Len(t, short, 2, "first window would train on a single row")

	assert.Nil(t, BacktestSlices(2, 12, 3, 1))
	assert.Len(t, BacktestSlices(30, 5, 0, 0), 1, "windows and step coerced to 1")
}

func TestAverageMetrics(t *testing.T) {
	avg := AverageMetrics([]Metrics{
		{MAE: Float(1), RMSE: Float(2)},
		{MAE: Float(3)},
	})
	assert.InDelta(t, 2.0, *avg.MAE, 1e-9)
	assert.InDelta(t, 2.0, *avg.RMSE, 1e-9)
	assert.Nil(t, avg.MAPE)
}
