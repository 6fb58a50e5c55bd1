package client

import (
	"math"
	"time"

	"forecast-workbench/internal/forecast"
)

type dataFields struct {
	UploadID string          `json:"upload_id,omitempty"`
	Records  forecast.Series `json:"records,omitempty"`
}

func newDataFields(ref forecast.DataRef) dataFields {
	if ref.UploadID != "" {
		return dataFields{UploadID: ref.UploadID}
	}
	return dataFields{Records: ref.Records}
}

type forecastRequest struct {
	forecast.WireConfig
	dataFields
}

type batchRequest struct {
	Configs []forecast.WireConfig `json:"configs"`
	dataFields
}

type backtestRequest struct {
	Configs  []forecast.WireConfig `json:"configs"`
	Windows  int                   `json:"windows"`
	StepSize int                   `json:"step_size"`
	dataFields
}

func wireConfigs(cfgs []forecast.Config) []forecast.WireConfig {
	out := make([]forecast.WireConfig, len(cfgs))
	for i, cfg := range cfgs {
		out[i] = cfg.Wire()
	}
	return out
}

type healthResponse struct {
	Status string `json:"status"`
}

type uploadResponse struct {
	UploadID     string          `json:"upload_id"`
	Preview      forecast.Series `json:"preview"`
	Rows         int             `json:"rows"`
	DetectedFreq string          `json:"detected_freq"`
}

type seriesPayload struct {
	Timestamps []string            `json:"timestamps"`
	Forecast   []float64           `json:"forecast"`
	Bounds     []forecast.Interval `json:"bounds"`
}

type forecastResponse struct {
	Timestamps []string             `json:"timestamps"`
	Forecast   []float64            `json:"forecast"`
	Bounds     []forecast.Interval  `json:"bounds"`
	Metrics    forecast.Metrics     `json:"metrics"`
	Config     *forecast.WireConfig `json:"config"`
	Fitted     *seriesPayload       `json:"fitted"`
}

// output converts the payload, falling back to the requested config when the
// service did not echo one.
func (r forecastResponse) output(requested forecast.Config) (forecast.Output, error) {
	cfg := requested
	if r.Config != nil {
		cfg = r.Config.Config()
	}
	out := forecast.Output{
		Timestamps: r.Timestamps,
		Forecast:   r.Forecast,
		Intervals:  r.Bounds,
		Metrics:    r.Metrics,
		Config:     cfg,
	}
	if out.Timestamps == nil {
		out.Timestamps = []string{}
	}
	if out.Forecast == nil {
		out.Forecast = []float64{}
	}
	if r.Fitted != nil && len(r.Fitted.Timestamps) == len(r.Fitted.Forecast) {
		out.Fitted = &forecast.FittedSeries{Timestamps: r.Fitted.Timestamps, Values: r.Fitted.Forecast}
	}
	if !out.Aligned() {
		return forecast.Output{}, ErrMisaligned
	}
	return out, nil
}

type leaderboardRow struct {
	ModelLabel string              `json:"model_label"`
	ModuleType string              `json:"module_type"`
	Metrics    forecast.Metrics    `json:"metrics"`
	Config     forecast.WireConfig `json:"config"`
}

func leaderboardRows(rows []leaderboardRow) []forecast.LeaderboardRow {
	out := make([]forecast.LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		cfg := r.Config.Config()
		label := r.ModelLabel
		if label == "" {
			label = cfg.Label()
		}
		out = append(out, forecast.LeaderboardRow{
			ModelLabel: label,
			Module:     cfg.Module,
			Metrics:    r.Metrics,
			Config:     cfg,
		})
	}
	return out
}

type batchResponse struct {
	Results     []forecastResponse `json:"results"`
	Leaderboard []leaderboardRow   `json:"leaderboard"`
}

type backtestWindow struct {
	Window    int              `json:"window"`
	TrainSize int              `json:"train_size"`
	TestSize  int              `json:"test_size"`
	Metrics   forecast.Metrics `json:"metrics"`
}

type backtestModel struct {
	Config    forecast.WireConfig `json:"config"`
	Aggregate forecast.Metrics    `json:"aggregate"`
	Windows   []backtestWindow    `json:"windows"`
}

type backtestResponse struct {
	Results     []backtestModel  `json:"results"`
	Leaderboard []leaderboardRow `json:"leaderboard"`
}

type datasetInfo struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Freq               string          `json:"freq"`
	SeasonLength       int             `json:"season_length"`
	RecommendedHorizon int             `json:"recommended_horizon"`
	RecommendedModule  string          `json:"recommended_module"`
	RecommendedModels  []string        `json:"recommended_models"`
	Rows               int             `json:"rows"`
	Sample             forecast.Series `json:"sample"`
}

func (d datasetInfo) info() forecast.DatasetInfo {
	info := forecast.DatasetInfo{
		ID:                 d.ID,
		Name:               d.Name,
		Description:        d.Description,
		Frequency:          d.Freq,
		SeasonLength:       d.SeasonLength,
		RecommendedHorizon: d.RecommendedHorizon,
		RecommendedModels:  d.RecommendedModels,
		Rows:               d.Rows,
		Sample:             d.Sample,
	}
	if m, ok := forecast.ParseModule(d.RecommendedModule); ok {
		info.RecommendedModule = m
	}
	return info
}

type datasetsResponse struct {
	Datasets []datasetInfo `json:"datasets"`
}

type datasetDetailResponse struct {
	Dataset datasetInfo     `json:"dataset"`
	Records forecast.Series `json:"records"`
}

type savedConfigRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Config      forecast.WireConfig `json:"config"`
}

type savedConfig struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Config      forecast.WireConfig `json:"config"`
	CreatedAt   float64             `json:"created_at"`
}

func (s savedConfig) saved() SavedConfig {
	return SavedConfig{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Config:      s.Config.Config(),
		CreatedAt:   unixSeconds(s.CreatedAt),
	}
}

func unixSeconds(v float64) time.Time {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

type savedConfigsResponse struct {
	Configs []savedConfig `json:"configs"`
}
