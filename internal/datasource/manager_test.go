package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/forecast"
)

func sampleInfo() forecast.DatasetInfo {
	return forecast.DatasetInfo{
		ID:                 "airpassengers",
		Name:               "Air Passengers",
		Frequency:          "MS",
		SeasonLength:       12,
		RecommendedHorizon: 12,
		RecommendedModule:  forecast.StatsForecast,
		RecommendedModels:  []string{"unknown", "Auto_ETS", "naive"},
	}
}

func TestManagerStartsEmpty(t *testing.T) {
	m := NewManager()
	snap := m.Snapshot()
	assert.Equal(t, None, snap.Kind)
	assert.False(t, snap.Ref().Valid())
	assert.Zero(t, snap.Rows())
}

func TestSelectSampleSendsRecordsInline(t *testing.T) {
	m := NewManager()
	records := forecast.Series{{DS: "1949-01-01", Y: 112}, {DS: "1949-02-01", Y: 118}}
	v := m.SelectSample(sampleInfo(), records)

	snap := m.Snapshot()
	assert.Equal(t, Sample, snap.Kind)
	assert.Equal(t, v, snap.Version)
	require.NotNil(t, snap.Dataset)
	assert.Equal(t, "airpassengers", snap.Dataset.ID)

	ref := snap.Ref()
	assert.True(t, ref.Valid())
	assert.Empty(t, ref.UploadID)
	assert.Equal(t, records, ref.Records)
}

func TestApplyUploadSendsHandle(t *testing.T) {
	m := NewManager()
	m.SelectSample(sampleInfo(), forecast.Series{{DS: "a", Y: 1}})
	before := m.Version()

	preview := forecast.Series{{DS: "2024-01-01", Y: 1}}
	m.ApplyUpload(Upload{ID: "up-1", Rows: 40, Preview: preview}, nil)

	snap := m.Snapshot()
	assert.Equal(t, Uploaded, snap.Kind)
	assert.Greater(t, snap.Version, before)
	assert.Nil(t, snap.Dataset)
	assert.Equal(t, preview, snap.Series, "preview is used when no local parse is given")
	assert.Equal(t, 40, snap.Rows())
	assert.Equal(t, forecast.DataRef{UploadID: "up-1"}, snap.Ref())
}

func TestFailUpload(t *testing.T) {
	m := NewManager()
	v := m.Version()
	assert.False(t, m.FailUpload())
	assert.Equal(t, v, m.Version(), "no prior series leaves state untouched")

	m.SelectSample(sampleInfo(), forecast.Series{{DS: "a", Y: 1}})
	assert.True(t, m.FailUpload())
	snap := m.Snapshot()
	assert.Equal(t, None, snap.Kind)
	assert.Empty(t, snap.Series)
}

func TestClearBumpsVersion(t *testing.T) {
	m := NewManager()
	m.SelectSample(sampleInfo(), forecast.Series{{DS: "a", Y: 1}})
	before := m.Version()
	after := m.Clear()
	assert.Greater(t, after, before)
	assert.Equal(t, None, m.Snapshot().Kind)
}

func TestInvalidateKeepsSource(t *testing.T) {
	m := NewManager()
	m.SelectSample(sampleInfo(), forecast.Series{{DS: "a", Y: 1}})
	before := m.Version()
	after := m.Invalidate()
	assert.Greater(t, after, before)
	assert.Equal(t, after, m.Version())
	assert.Equal(t, Sample, m.Snapshot().Kind)
	assert.Len(t, m.Snapshot().Series, 1)
}

func TestRecommendation(t *testing.T) {
	patch := Recommendation(sampleInfo())
	require.NotNil(t, patch)
	cfg := forecast.Apply(forecast.DefaultConfig(), patch)

	assert.Equal(t, "MS", cfg.Frequency)
	assert.Equal(t, 12, cfg.SeasonLength)
	assert.Equal(t, 12, cfg.Horizon)
	assert.Equal(t, forecast.StatsForecast, cfg.Module)
	assert.Equal(t, "auto_ets", cfg.Model, "first registered recommendation wins")

	assert.Nil(t, Recommendation(forecast.DatasetInfo{ID: "bare"}))
}

func TestSnapshotLabel(t *testing.T) {
	m := NewManager()
	assert.Empty(t, m.Snapshot().Label())

	m.ApplyUpload(Upload{ID: "u-1", Rows: 2, Preview: forecast.Series{{DS: "2024-01-01", Y: 1}}}, nil)
	assert.Equal(t, "upload:u-1", m.Snapshot().Label())

	m.ApplyUpload(Upload{ID: "u-2", Name: "sales.csv"}, forecast.Series{{DS: "2024-01-01", Y: 1}})
	assert.Equal(t, "upload:sales.csv", m.Snapshot().Label())

	m.SelectSample(forecast.DatasetInfo{ID: "airpassengers"}, forecast.Series{{DS: "1949-01-01", Y: 112}})
	assert.Equal(t, "sample:airpassengers", m.Snapshot().Label())
}
