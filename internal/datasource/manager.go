package datasource

import (
	"strings"
	"sync"

	"forecast-workbench/internal/forecast"
)

// Kind names what backs the working series.
type Kind string

const (
	None     Kind = "none"
	Uploaded Kind = "uploaded"
	Sample   Kind = "sample"
)

// Upload describes a file accepted by the forecasting service.
type Upload struct {
	ID           string
	Name         string
	Rows         int
	DetectedFreq string
	Preview      forecast.Series
}

// Snapshot is a consistent copy of the manager state.
type Snapshot struct {
	Kind    Kind
	Series  forecast.Series
	Upload  *Upload
	Dataset *forecast.DatasetInfo
	Version uint64
}

// Ref returns the data reference a request should carry. Uploads are sent by
// handle, samples inline.
func (s Snapshot) Ref() forecast.DataRef {
	switch s.Kind {
	case Uploaded:
		if s.Upload != nil && s.Upload.ID != "" {
			return forecast.DataRef{UploadID: s.Upload.ID}
		}
	case Sample:
		return forecast.DataRef{Records: s.Series}
	}
	return forecast.DataRef{}
}

// Label names the source for archives and notifications: "sample:<id>" or
// "upload:<name>".
func (s Snapshot) Label() string {
	switch {
	case s.Dataset != nil:
		return "sample:" + s.Dataset.ID
	case s.Upload != nil && s.Upload.Name != "":
		return "upload:" + s.Upload.Name
	case s.Upload != nil:
		return "upload:" + s.Upload.ID
	}
	return ""
}

// Rows returns the record count of the active source.
func (s Snapshot) Rows() int {
	if s.Kind == Uploaded && s.Upload != nil && s.Upload.Rows > 0 {
		return s.Upload.Rows
	}
	return len(s.Series)
}

// Manager tracks the active data source. Every change bumps Version so late
// responses issued against an older source can be recognised.
type Manager struct {
	mu      sync.RWMutex
	kind    Kind
	series  forecast.Series
	upload  *Upload
	dataset *forecast.DatasetInfo
	version uint64
}

// NewManager returns a manager with no source selected.
func NewManager() *Manager {
	return &Manager{kind: None}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{Kind: m.kind, Series: m.series, Version: m.version}
	if m.upload != nil {
		u := *m.upload
		snap.Upload = &u
	}
	if m.dataset != nil {
		d := *m.dataset
		snap.Dataset = &d
	}
	return snap
}

// Version returns the current source version token.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// SelectSample installs a bundled dataset as the active series.
func (m *Manager) SelectSample(info forecast.DatasetInfo, records forecast.Series) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := info
	m.kind = Sample
	m.series = records
	m.upload = nil
	m.dataset = &d
	m.version++
	return m.version
}

// ApplyUpload installs a successfully uploaded file. series is the locally
// parsed copy; when it is empty the upload preview is kept instead.
func (m *Manager) ApplyUpload(upload Upload, series forecast.Series) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := upload
	if len(series) == 0 {
		series = upload.Preview
	}
	m.kind = Uploaded
	m.series = series
	m.upload = &u
	m.dataset = nil
	m.version++
	return m.version
}

// FailUpload records a failed upload. With no prior series nothing changes;
// otherwise the source is cleared so no stale preview survives. It reports
// whether a series was dropped.
func (m *Manager) FailUpload() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kind == None && len(m.series) == 0 {
		return false
	}
	m.reset()
	return true
}

// Invalidate bumps the version without touching the source, so requests
// issued against it are treated as stale once they return.
func (m *Manager) Invalidate() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	return m.version
}

// Clear drops the active source.
func (m *Manager) Clear() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return m.version
}

func (m *Manager) reset() {
	m.kind = None
	m.series = nil
	m.upload = nil
	m.dataset = nil
	m.version++
}

// Recommendation builds the advisory patch for a sample dataset. Empty
// recommendations are left out so they do not overwrite user choices.
func Recommendation(info forecast.DatasetInfo) *forecast.Patch {
	patch := &forecast.Patch{}
	if f := strings.TrimSpace(info.Frequency); f != "" {
		patch.Frequency = &f
	}
	if info.SeasonLength > 0 {
		v := info.SeasonLength
		patch.SeasonLength = &v
	}
	if info.RecommendedHorizon > 0 {
		v := info.RecommendedHorizon
		patch.Horizon = &v
	}
	if info.RecommendedModule != "" {
		if module, ok := forecast.ParseModule(string(info.RecommendedModule)); ok {
			patch.Module = &module
			for _, model := range info.RecommendedModels {
				if forecast.IsRegistered(module, model) {
					m := strings.ToLower(strings.TrimSpace(model))
					patch.Model = &m
					break
				}
			}
		}
	}
	if patch.IsZero() {
		return nil
	}
	return patch
}
