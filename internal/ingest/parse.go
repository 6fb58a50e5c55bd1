// Package ingest turns delimited text into an ordered time series.
//
// Parsing is deliberately plain: rows are split on commas with no quoting or
// escaping support.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

var (
	// ErrSchemaInsufficient means the header has fewer than two columns.
	ErrSchemaInsufficient = apperr.New(apperr.SchemaInsufficient, "at least two columns are required")
	// ErrColumnNotFound means a mapped column is missing from the header.
	ErrColumnNotFound = errors.New("ingest: column not found")
	// ErrUnordered means timestamps are neither parseable nor already ordered.
	ErrUnordered = errors.New("ingest: timestamps are not in ascending order")
	// ErrSameColumn means timestamp and value map to one column.
	ErrSameColumn = errors.New("ingest: timestamp and value columns must differ")
)

// Mapping names the timestamp and value columns.
type Mapping struct {
	TimestampColumn string
	ValueColumn     string
}

func (m Mapping) withDefaults() Mapping {
	if strings.TrimSpace(m.TimestampColumn) == "" {
		m.TimestampColumn = "ds"
	}
	if strings.TrimSpace(m.ValueColumn) == "" {
		m.ValueColumn = "y"
	}
	return m
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"2006",
}

// Header returns the header cells of text with blank cells replaced by
// positional placeholders.
func Header(text string) []string {
	lines := splitLines(text)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return headerCells(line)
	}
	return nil
}

// Parse reads text with the given column mapping. Rows with an empty
// timestamp or a non-finite value are dropped. A header with fewer than two
// columns yields an empty series and ErrSchemaInsufficient.
func Parse(text string, mapping Mapping) (forecast.Series, error) {
	mapping = mapping.withDefaults()
	lines := splitLines(text)

	headerIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return forecast.Series{}, ErrSchemaInsufficient
	}

	header := headerCells(lines[headerIdx])
	if len(header) < 2 {
		return forecast.Series{}, ErrSchemaInsufficient
	}

	tsCol := columnIndex(header, mapping.TimestampColumn)
	if tsCol < 0 {
		return forecast.Series{}, fmt.Errorf("%w: %q", ErrColumnNotFound, mapping.TimestampColumn)
	}
	valCol := columnIndex(header, mapping.ValueColumn)
	if valCol < 0 {
		return forecast.Series{}, fmt.Errorf("%w: %q", ErrColumnNotFound, mapping.ValueColumn)
	}
	if tsCol == valCol {
		return forecast.Series{}, ErrSameColumn
	}

	series := make(forecast.Series, 0, len(lines)-headerIdx-1)
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		if tsCol >= len(cells) || valCol >= len(cells) {
			continue
		}
		ds := strings.TrimSpace(cells[tsCol])
		if ds == "" {
			continue
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(cells[valCol]), 64)
		if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		series = append(series, forecast.Record{DS: ds, Y: y})
	}

	return order(series)
}

// order makes series non-decreasing by timestamp. Parseable timestamps are
// sorted chronologically; otherwise the input must already be ordered.
func order(series forecast.Series) (forecast.Series, error) {
	parsed := make([]time.Time, len(series))
	for i, rec := range series {
		t, ok := parseTime(rec.DS)
		if !ok {
			return checkLexical(series)
		}
		parsed[i] = t
	}

	idx := make([]int, len(series))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return parsed[idx[a]].Before(parsed[idx[b]])
	})

	out := make(forecast.Series, len(series))
	for i, j := range idx {
		out[i] = series[j]
	}
	return out, nil
}

func checkLexical(series forecast.Series) (forecast.Series, error) {
	for i := 1; i < len(series); i++ {
		if series[i].DS < series[i-1].DS {
			return forecast.Series{}, fmt.Errorf("%w: %q after %q", ErrUnordered, series[i].DS, series[i-1].DS)
		}
	}
	return series, nil
}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func headerCells(line string) []string {
	raw := strings.Split(line, ",")
	cells := make([]string, len(raw))
	for i, cell := range raw {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = placeholder(i)
		}
		cells[i] = cell
	}
	return cells
}

func columnIndex(header []string, name string) int {
	name = strings.TrimSpace(name)
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
