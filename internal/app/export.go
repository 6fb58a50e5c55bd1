package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"forecast-workbench/internal/forecast"
)

var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Export renders a forecast as CSV and/or PNG. With RunID set the archived
// run is exported; otherwise a fresh forecast is run on the selected source.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)

	if opts.RunID != "" {
		store, closeStore, err := a.requireStore(ctx, "export archived runs")
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := store.GetRun(ctx, opts.RunID)
		if err != nil {
			return err
		}
		run, err := rec.Run()
		if err != nil {
			return err
		}
		return a.writeExports(run, nil, opts.CSVPath, opts.PNGPath, maxPoints)
	}

	s, err := a.prepare(ctx, opts.Source, opts.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.orch.RunForecast(ctx, nil)
	if err != nil {
		return err
	}
	return a.writeExports(run, s.orch.Source().Series, opts.CSVPath, opts.PNGPath, maxPoints)
}

func (a *App) writeExports(run forecast.RunResult, history forecast.Series, csvPath, pngPath string, maxPoints int) error {
	history = downsampleSeries(history, maxPoints)
	a.Logger.Info().
		Str("run_id", run.RunID).
		Int("history", len(history)).
		Int("forecast", len(run.Forecast)).
		Msg("exporting forecast")

	if csvPath != "" {
		if err := writeForecastCSV(csvPath, run, history); err != nil {
			return err
		}
	}

	if pngPath != "" {
		if err := writeForecastPNG(pngPath, run, history); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSeries(series forecast.Series, max int) forecast.Series {
	if max <= 0 || len(series) <= max {
		return series
	}
	if max == 1 {
		return series[len(series)-1:]
	}

	result := make(forecast.Series, 0, max)
	step := float64(len(series)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(series) {
			idx = len(series) - 1
		}
		result = append(result, series[idx])
	}
	return result
}

func writeForecastCSV(path string, run forecast.RunResult, history forecast.Series) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ds", "kind", "value"}
	for _, iv := range run.Intervals {
		header = append(header, "lo-"+strconv.Itoa(iv.Level), "hi-"+strconv.Itoa(iv.Level))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	blanks := make([]string, 2*len(run.Intervals))
	for _, rec := range history {
		record := append([]string{rec.DS, "history", csvValue(rec.Y)}, blanks...)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	if run.Fitted != nil {
		for i, ts := range run.Fitted.Timestamps {
			if i >= len(run.Fitted.Values) {
				break
			}
			record := append([]string{ts, "fitted", csvValue(run.Fitted.Values[i])}, blanks...)
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	for i, ts := range run.Timestamps {
		record := []string{ts, "forecast", csvValue(run.Forecast[i])}
		for _, iv := range run.Intervals {
			record = append(record, csvValue(iv.Lower[i]), csvValue(iv.Upper[i]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).String()
}

func writeForecastPNG(path string, run forecast.RunResult, history forecast.Series) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	axis := newAxis(history.Timestamps(), run.Timestamps)
	series := []chart.Series{}
	if len(history) > 0 {
		series = append(series, axis.series("History", history.Timestamps(), history.Values(), chart.Style{}))
	}
	series = append(series, axis.series("Forecast "+run.Config.Label(), run.Timestamps, run.Forecast, chart.Style{StrokeWidth: 2}))
	for _, iv := range run.Intervals {
		band := chart.Style{StrokeDashArray: []float64{4, 4}}
		series = append(series,
			axis.series("Lower "+strconv.Itoa(iv.Level)+"%", run.Timestamps, iv.Lower, band),
			axis.series("Upper "+strconv.Itoa(iv.Level)+"%", run.Timestamps, iv.Upper, band),
		)
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  run.Config.Label(),
		Width:  1280,
		Height: 720,
		XAxis:  axis.xAxis(),
		YAxis: chart.YAxis{
			Name:           "Value",
			ValueFormatter: valueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// chartAxis plots on a time axis when every timestamp parses and on the row
// position otherwise.
type chartAxis struct {
	index map[string]float64
	times bool
}

func newAxis(groups ...[]string) chartAxis {
	axis := chartAxis{index: map[string]float64{}, times: true}
	pos := 0.0
	for _, group := range groups {
		for _, ts := range group {
			if _, ok := axis.index[ts]; ok {
				continue
			}
			axis.index[ts] = pos
			pos++
			if _, ok := parseTimestamp(ts); !ok {
				axis.times = false
			}
		}
	}
	return axis
}

func (c chartAxis) series(name string, timestamps []string, values []float64, style chart.Style) chart.Series {
	n := min(len(timestamps), len(values))
	if c.times {
		x := make([]time.Time, n)
		for i := 0; i < n; i++ {
			x[i], _ = parseTimestamp(timestamps[i])
		}
		return chart.TimeSeries{Name: name, Style: style, XValues: x, YValues: values[:n]}
	}
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = c.index[timestamps[i]]
	}
	return chart.ContinuousSeries{Name: name, Style: style, XValues: x, YValues: values[:n]}
}

func (c chartAxis) xAxis() chart.XAxis {
	if c.times {
		return chart.XAxis{ValueFormatter: chart.TimeValueFormatter}
	}
	return chart.XAxis{Name: "Row"}
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
