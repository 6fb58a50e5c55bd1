package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"forecast-workbench/internal/forecast"
)

// RunRecord is an archived forecast run.
type RunRecord struct {
	RunID          string
	Source         string
	Module         string
	Model          string
	Horizon        int
	FirstTimestamp string
	MAE            decimal.NullDecimal
	RMSE           decimal.NullDecimal
	MAPE           decimal.NullDecimal
	Config         json.RawMessage
	Payload        json.RawMessage
	DurationMS     int64
	CreatedAt      time.Time
}

type runPayload struct {
	Timestamps []string               `json:"timestamps"`
	Forecast   []float64              `json:"forecast"`
	Intervals  []forecast.Interval    `json:"intervals,omitempty"`
	Fitted     *forecast.FittedSeries `json:"fitted,omitempty"`
}

// NewRunRecord flattens a run for storage.
func NewRunRecord(run forecast.RunResult, source string) (RunRecord, error) {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode config: %w", err)
	}
	payload, err := json.Marshal(runPayload{
		Timestamps: run.Timestamps,
		Forecast:   run.Forecast,
		Intervals:  run.Intervals,
		Fitted:     run.Fitted,
	})
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode payload: %w", err)
	}

	key := run.Key()
	return RunRecord{
		RunID:          run.RunID,
		Source:         source,
		Module:         string(key.Module),
		Model:          key.Model,
		Horizon:        key.Length,
		FirstTimestamp: key.FirstTimestamp,
		MAE:            nullDecimal(run.Metrics.MAE),
		RMSE:           nullDecimal(run.Metrics.RMSE),
		MAPE:           nullDecimal(run.Metrics.MAPE),
		Config:         cfg,
		Payload:        payload,
		DurationMS:     run.Duration.Milliseconds(),
		CreatedAt:      run.CreatedAt,
	}, nil
}

// Run rebuilds the forecast run. The configuration is normalized on decode.
func (r RunRecord) Run() (forecast.RunResult, error) {
	var cfg forecast.Config
	if err := json.Unmarshal(r.Config, &cfg); err != nil {
		return forecast.RunResult{}, fmt.Errorf("decode config for run %s: %w", r.RunID, err)
	}
	var payload runPayload
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return forecast.RunResult{}, fmt.Errorf("decode payload for run %s: %w", r.RunID, err)
		}
	}
	return forecast.RunResult{
		RunID:      r.RunID,
		Config:     cfg,
		Timestamps: payload.Timestamps,
		Forecast:   payload.Forecast,
		Intervals:  payload.Intervals,
		Fitted:     payload.Fitted,
		Metrics: forecast.Metrics{
			MAE:  floatPtr(r.MAE),
			RMSE: floatPtr(r.RMSE),
			MAPE: floatPtr(r.MAPE),
		},
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
		CreatedAt: r.CreatedAt,
	}, nil
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}
