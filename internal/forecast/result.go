package forecast

import (
	"math"
	"time"
)

// Record is a single (timestamp, value) observation.
type Record struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

// Series is an ordered sequence of records.
type Series []Record

// Timestamps returns the ds column.
func (s Series) Timestamps() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.DS
	}
	return out
}

// Values returns the y column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Y
	}
	return out
}

// DataRef points a request at its data: an upload handle or inline records.
// Exactly one of the two is set on a valid ref.
type DataRef struct {
	UploadID string
	Records  Series
}

// Valid reports whether exactly one data form is present.
func (d DataRef) Valid() bool {
	hasUpload := d.UploadID != ""
	hasRecords := len(d.Records) > 0
	return hasUpload != hasRecords
}

// Metrics are accuracy measures on the holdout; any may be absent.
type Metrics struct {
	MAE  *float64 `json:"mae"`
	RMSE *float64 `json:"rmse"`
	MAPE *float64 `json:"mape"`
}

// Interval is a prediction interval at one confidence level.
type Interval struct {
	Level int       `json:"level"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// FittedSeries holds in-sample fitted values.
type FittedSeries struct {
	Timestamps []string  `json:"timestamps"`
	Values     []float64 `json:"values"`
}

// Output is the payload of one successful forecast.
type Output struct {
	Timestamps []string
	Forecast   []float64
	Intervals  []Interval
	Metrics    Metrics
	Config     Config
	Fitted     *FittedSeries
}

// Aligned reports whether forecast and interval lengths match the timestamps.
func (o Output) Aligned() bool {
	n := len(o.Timestamps)
	if len(o.Forecast) != n {
		return false
	}
	for _, iv := range o.Intervals {
		if len(iv.Lower) != n || len(iv.Upper) != n {
			return false
		}
	}
	return true
}

// RunResult is an immutable completed forecast run.
type RunResult struct {
	RunID      string
	Config     Config
	Timestamps []string
	Forecast   []float64
	Intervals  []Interval
	Metrics    Metrics
	Fitted     *FittedSeries
	Duration   time.Duration
	CreatedAt  time.Time
	Seq        uint64
}

// RunKey identifies runs that count as the same logical forecast.
type RunKey struct {
	Module         Module
	Model          string
	FirstTimestamp string
	Length         int
}

// Key derives the run identity key.
func (r RunResult) Key() RunKey {
	first := ""
	if len(r.Timestamps) > 0 {
		first = r.Timestamps[0]
	}
	return RunKey{
		Module:         r.Config.Module,
		Model:          r.Config.Model,
		FirstTimestamp: first,
		Length:         len(r.Forecast),
	}
}

// LeaderboardRow is a ranking row precomputed by the service.
type LeaderboardRow struct {
	ModelLabel string
	Module     Module
	Metrics    Metrics
	Config     Config
}

// BatchResult is a single-split comparison of several configs.
type BatchResult struct {
	Results     []Output
	Leaderboard []LeaderboardRow
	Duration    time.Duration
	CreatedAt   time.Time
}

// BacktestWindow holds the metrics for one rolling window.
type BacktestWindow struct {
	Window    int
	TrainSize int
	TestSize  int
	Metrics   Metrics
}

// BacktestModel is the backtest outcome for one config.
type BacktestModel struct {
	Config    Config
	Aggregate Metrics
	Windows   []BacktestWindow
}

// BacktestResult is a multi-config rolling backtest.
type BacktestResult struct {
	Results     []BacktestModel
	Leaderboard []LeaderboardRow
	Windows     int
	StepSize    int
	Duration    time.Duration
	CreatedAt   time.Time
}

// DatasetInfo describes a bundled sample dataset and its recommended settings.
type DatasetInfo struct {
	ID                 string
	Name               string
	Description        string
	Frequency          string
	SeasonLength       int
	RecommendedHorizon int
	RecommendedModule  Module
	RecommendedModels  []string
	Rows               int
	Sample             Series
}

// AverageMetrics averages each metric over the windows where it is present.
func AverageMetrics(metrics []Metrics) Metrics {
	var out Metrics
	out.MAE = meanOf(metrics, func(m Metrics) *float64 { return m.MAE })
	out.RMSE = meanOf(metrics, func(m Metrics) *float64 { return m.RMSE })
	out.MAPE = meanOf(metrics, func(m Metrics) *float64 { return m.MAPE })
	return out
}

func meanOf(metrics []Metrics, pick func(Metrics) *float64) *float64 {
	sum, n := 0.0, 0
	for _, m := range metrics {
		v := pick(m)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// Float returns a pointer to v; handy for building metrics.
func Float(v float64) *float64 { return &v }
