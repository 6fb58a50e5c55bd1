package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/datasource"
	"forecast-workbench/internal/forecast"
	"forecast-workbench/internal/ingest"
)

// Upload parses data locally, then sends it to the service. Local schema
// errors are returned before any network call. Empty mapping fields are
// inferred from the header.
func (o *Orchestrator) Upload(ctx context.Context, name string, data []byte, mapping ingest.Mapping) (datasource.Snapshot, error) {
	const op = "upload"
	if err := o.begin(Uploading); err != nil {
		return datasource.Snapshot{}, err
	}
	defer o.end()

	text := string(data)
	mapping = resolveMapping(text, mapping)
	version := o.source.Version()

	series, err := ingest.Parse(text, mapping)
	if err != nil {
		o.failUpload()
		return datasource.Snapshot{}, o.fail(op, err)
	}
	if len(series) == 0 {
		o.failUpload()
		return datasource.Snapshot{}, o.fail(op, apperr.New(apperr.NoData, "no valid rows found in "+displayName(name)))
	}

	res, err := o.engine.Upload(ctx, name, data, mapping.TimestampColumn, mapping.ValueColumn)
	if err != nil {
		o.failUpload()
		return datasource.Snapshot{}, o.fail(op, err)
	}
	applied := o.commit(version, func() {
		o.source.ApplyUpload(datasource.Upload{
			ID:           res.UploadID,
			Name:         name,
			Rows:         res.Rows,
			DetectedFreq: res.DetectedFreq,
			Preview:      res.Preview,
		}, series)
		o.resetResultsLocked()
	})
	if !applied {
		return datasource.Snapshot{}, o.fail(op, ErrStaleResult)
	}

	if freq := strings.TrimSpace(res.DetectedFreq); slices.Contains(forecast.Frequencies, freq) {
		o.Patch(ctx, &forecast.Patch{Frequency: &freq})
	}

	o.logger.Info().
		Str("upload_id", res.UploadID).
		Str("name", name).
		Int("rows", res.Rows).
		Int("parsed", len(series)).
		Str("detected_freq", res.DetectedFreq).
		Msg("upload applied")
	o.observe(op, nil)
	return o.source.Snapshot(), nil
}

// LoadSample switches to a bundled dataset and applies its recommended
// settings once. The previous forecast, error and duration are cleared and
// the source version is bumped before the request, so work still in flight
// against the old series is discarded.
func (o *Orchestrator) LoadSample(ctx context.Context, id string) (datasource.Snapshot, error) {
	const op = "sample"
	id = strings.TrimSpace(id)
	version := o.switchSource((*datasource.Manager).Invalidate)

	info, records, err := o.engine.GetDataset(ctx, id)
	if err != nil {
		return datasource.Snapshot{}, o.fail(op, fmt.Errorf("load sample %s: %w", id, err))
	}
	if len(records) == 0 {
		return datasource.Snapshot{}, o.fail(op, apperr.New(apperr.NoData, fmt.Sprintf("sample %s has no records", id)))
	}
	if info.ID == "" {
		info.ID = id
	}
	applied := o.commit(version, func() {
		o.source.SelectSample(info, records)
		o.resetResultsLocked()
	})
	if !applied {
		return datasource.Snapshot{}, o.fail(op, ErrStaleResult)
	}
	if patch := datasource.Recommendation(info); patch != nil {
		o.Patch(ctx, patch)
	}

	o.logger.Info().Str("dataset", info.ID).Int("rows", len(records)).Msg("sample selected")
	o.observe(op, nil)
	return o.source.Snapshot(), nil
}

// ClearSource drops the data source together with history, the leaderboard
// and any batch or backtest result.
func (o *Orchestrator) ClearSource() {
	o.switchSource((*datasource.Manager).Clear)
	o.history.Reset()
	if o.observer != nil {
		o.observer.SetLeaderboardSize(0)
	}
	o.logger.Info().Msg("source cleared")
}

// failUpload drops the active source after a failed upload. Results bound
// to a dropped series go with it.
func (o *Orchestrator) failUpload() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.source.FailUpload() {
		o.resetResultsLocked()
	}
}

func resolveMapping(text string, m ingest.Mapping) ingest.Mapping {
	if strings.TrimSpace(m.TimestampColumn) != "" && strings.TrimSpace(m.ValueColumn) != "" {
		return m
	}
	ts, val := ingest.InferColumns(ingest.Header(text))
	if strings.TrimSpace(m.TimestampColumn) == "" {
		m.TimestampColumn = ts
	}
	if strings.TrimSpace(m.ValueColumn) == "" {
		m.ValueColumn = val
	}
	return m
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "upload"
	}
	return name
}
