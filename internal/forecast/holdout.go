package forecast

import "math"

// ComputeHoldout returns how many trailing rows are withheld for evaluation.
// The result is always in [0, rows-1] and is 0 for rows <= 1.
func ComputeHoldout(rows int, cfg Config) int {
	if rows <= 1 || cfg.TestFraction == nil {
		return 0
	}
	fraction := *cfg.TestFraction
	if math.IsNaN(fraction) || fraction <= 0 {
		return 0
	}
	holdout := int(math.Ceil(float64(rows) * fraction))
	if holdout <= 0 {
		return 0
	}
	return max(1, min(holdout, rows-1))
}

// Split divides series into train and test parts according to cfg.
func Split(series Series, cfg Config) (train, test Series) {
	holdout := ComputeHoldout(len(series), cfg)
	cut := len(series) - holdout
	return series[:cut], series[cut:]
}

// BacktestSlice is one rolling window as laid out by the forecasting service.
type BacktestSlice struct {
	Window    int
	TrainEnd  int
	TestStart int
	TestEnd   int
}

// TrainSize is the number of rows the window trains on.
func (s BacktestSlice) TrainSize() int { return s.TrainEnd }

// TestSize is the number of rows the window is evaluated on.
func (s BacktestSlice) TestSize() int { return s.TestEnd - s.TestStart }

// BacktestSlices reproduces the service's rolling-window layout: windows start
// horizon*windows rows before the end and step forward by step rows. Windows
// without at least two training rows or any test rows are skipped.
func BacktestSlices(rows, horizon, windows, step int) []BacktestSlice {
	windows = max(1, windows)
	step = max(1, step)
	if rows <= 2 || horizon <= 0 {
		return nil
	}
	start := max(1, rows-horizon*windows)
	slices := make([]BacktestSlice, 0, windows)
	for idx := 0; idx < windows; idx++ {
		testStart := start + idx*step
		testEnd := min(testStart+horizon, rows)
		if testStart < 2 || testStart >= rows || testEnd <= testStart {
			continue
		}
		slices = append(slices, BacktestSlice{
			Window:    idx + 1,
			TrainEnd:  testStart,
			TestStart: testStart,
			TestEnd:   testEnd,
		})
	}
	return slices
}
