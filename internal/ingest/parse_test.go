package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

func TestParseBasic(t *testing.T) {
	series, err := Parse("ds,y\n2024-01-01,1\n2024-01-02,2\n", Mapping{TimestampColumn: "ds", ValueColumn: "y"})
	require.NoError(t, err)
	assert.Equal(t, forecast.Series{
		{DS: "2024-01-01", Y: 1},
		{DS: "2024-01-02", Y: 2},
	}, series)
}

func TestParseDropsBadRows(t *testing.T) {
	text := "ds,y\n2024-01-01,1\n2024-01-02,abc\n,3\n2024-01-04,NaN\n2024-01-05,Inf\n2024-01-06\n2024-01-07, 7 \n"
	series, err := Parse(text, Mapping{})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].DS)
	assert.Equal(t, 7.0, series[1].Y, "non-numeric row is dropped, not zeroed")
}

func TestParseHeaderMatching(t *testing.T) {
	text := "\n\r\nDate,Sales,Store\r\n2024-02-01,10,a\r\n2024-01-01,5,a\r\n"
	series, err := Parse(text, Mapping{TimestampColumn: "date", ValueColumn: "SALES"})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].DS, "parseable timestamps are sorted")
	assert.Equal(t, 10.0, series[1].Y)
}

func TestParseSchemaInsufficient(t *testing.T) {
	series, err := Parse("ds\n2024-01-01\n", Mapping{})
	assert.Empty(t, series)
	assert.True(t, errors.Is(err, apperr.ErrSchemaInsufficient))
	assert.Equal(t, apperr.SchemaInsufficient, apperr.KindOf(err))

	_, err = Parse("   \n\n", Mapping{})
	assert.True(t, errors.Is(err, apperr.ErrSchemaInsufficient))
}

func TestParseMappingErrors(t *testing.T) {
	_, err := Parse("ds,y\n2024-01-01,1\n", Mapping{TimestampColumn: "when", ValueColumn: "y"})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = Parse("ds,y\n2024-01-01,1\n", Mapping{TimestampColumn: "ds", ValueColumn: "DS"})
	assert.ErrorIs(t, err, ErrSameColumn)
}

func TestParseOpaqueTimestamps(t *testing.T) {
	series, err := Parse("period,y\nP1,1\nP2,2\n", Mapping{TimestampColumn: "period"})
	require.NoError(t, err)
	assert.Len(t, series, 2)

	_, err = Parse("period,y\nP2,1\nP1,2\n", Mapping{TimestampColumn: "period"})
	assert.ErrorIs(t, err, ErrUnordered)
}

func TestHeaderPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"column_1", "y", "column_3"}, Header(",y, \n1,2,3"))
	assert.Nil(t, Header(""))
}

func TestInferColumns(t *testing.T) {
	cases := []struct {
		headers []string
		ts, val string
	}{
		{[]string{"ds", "y"}, "ds", "y"},
		{[]string{"Value", "Month"}, "Month", "Value"},
		{[]string{"column_1", "passengers"}, "column_1", "passengers"},
		{[]string{"a", "b", "c"}, "a", "b"},
		{[]string{"time", "date", "amount"}, "date", "amount"},
		{[]string{"timestamp", "foo"}, "timestamp", "foo"},
	}
	for _, tc := range cases {
		ts, val := InferColumns(tc.headers)
		assert.Equal(t, tc.ts, ts, "timestamp for %v", tc.headers)
		assert.Equal(t, tc.val, val, "value for %v", tc.headers)
	}

	ts, val := InferColumns(nil)
	assert.Empty(t, ts)
	assert.Empty(t, val)
}
