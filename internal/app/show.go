package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"forecast-workbench/internal/forecast"
	"forecast-workbench/internal/storage"
)

const timeRounding = time.Millisecond

// Show prints recently archived runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx, "show runs")
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := a.listRecords(ctx, store, opts.Source, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no runs found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRun\tSource\tModel\tHorizon\tMAE\tRMSE\tMAPE\tDuration")
	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s/%s\t%d\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			shortID(rec.RunID),
			sanitizeInline(rec.Source),
			rec.Module,
			rec.Model,
			rec.Horizon,
			formatNullDecimal(rec.MAE, 3),
			formatNullDecimal(rec.RMSE, 3),
			formatNullDecimal(rec.MAPE, 2),
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
		)
	}

	writer.Flush()
	return nil
}

// Leaderboard ranks archived runs with the same rules as the session
// leaderboard: latest run per key, RMSE first, MAE-only runs after.
func (a *App) Leaderboard(ctx context.Context, opts LeaderboardOptions) error {
	store, closeStore, err := a.requireStore(ctx, "build leaderboard")
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := a.listRecords(ctx, store, opts.Source, opts.Limit)
	if err != nil {
		return err
	}

	runs := make([]forecast.RunResult, 0, len(records))
	// records arrive newest first; Recompute expects history order
	for i := len(records) - 1; i >= 0; i-- {
		run, err := records[i].Run()
		if err != nil {
			a.Logger.Warn().Err(err).Str("run_id", records[i].RunID).Msg("skipping unreadable archived run")
			continue
		}
		runs = append(runs, run)
	}

	entries := forecast.Recompute(runs)
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "no runs found")
		return nil
	}
	a.printEntries(entries)
	return nil
}

func (a *App) printEntries(entries []forecast.LeaderboardEntry) {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tModel\tStart\tHorizon\tScore\tMAE\tRMSE\tMAPE\tRun")
	for i, e := range entries {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, e.Label, e.Key.FirstTimestamp, e.Key.Length, formatScore(e.Score),
			formatMetric(e.Metrics.MAE, 3), formatMetric(e.Metrics.RMSE, 3), formatMetric(e.Metrics.MAPE, 2),
			shortID(e.RunID))
	}
	writer.Flush()
}

func (a *App) listRecords(ctx context.Context, store storage.RunStore, source string, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if source = strings.TrimSpace(source); source != "" {
		return store.ListRunsBySource(ctx, source, limit)
	}
	return store.ListRecentRuns(ctx, limit)
}

func formatMetric(v *float64, places int32) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}

func formatNullDecimal(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(places)
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}

func formatScore(score float64) string {
	if math.IsInf(score, 1) || math.IsNaN(score) {
		return "inf"
	}
	return decimal.NewFromFloat(score).StringFixed(4)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
