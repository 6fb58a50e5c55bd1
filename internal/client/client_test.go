package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Timeout: time.Second, UserAgent: "test"}, zerolog.Nop())
}

func TestForecastSendsFlatConfigAndRecords(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "test", r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"timestamps": []string{"2024-01-03", "2024-01-04"},
			"forecast":   []float64{3, 4},
			"bounds": []map[string]any{
				{"level": 80, "lower": []float64{2, 3}, "upper": []float64{4, 5}},
			},
			"metrics": map[string]any{"mae": 0.5, "rmse": nil},
			"config":  map[string]any{"module_type": "StatsForecast", "model_type": "naive", "freq": "D", "season_length": 7, "horizon": 2, "level": []int{80}},
		})
	})

	cfg := forecast.DefaultConfig()
	records := forecast.Series{{DS: "2024-01-01", Y: 1}, {DS: "2024-01-02", Y: 2}}
	out, err := c.Forecast(context.Background(), cfg, forecast.DataRef{Records: records})
	require.NoError(t, err)

	assert.Equal(t, "StatsForecast", got["module_type"])
	assert.Equal(t, "auto_arima", got["model_type"])
	assert.NotContains(t, got, "upload_id")
	assert.Len(t, got["records"], 2)

	assert.Equal(t, []float64{3, 4}, out.Forecast)
	require.Len(t, out.Intervals, 1)
	assert.Equal(t, 80, out.Intervals[0].Level)
	require.NotNil(t, out.Metrics.MAE)
	assert.Nil(t, out.Metrics.RMSE)
	assert.Equal(t, "naive", out.Config.Model, "echoed config wins")
}

func TestForecastUploadRef(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "up-1", got["upload_id"])
		assert.NotContains(t, got, "records")
		_ = json.NewEncoder(w).Encode(map[string]any{"timestamps": []string{}, "forecast": []float64{}})
	})
	out, err := c.Forecast(context.Background(), forecast.DefaultConfig(), forecast.DataRef{UploadID: "up-1"})
	require.NoError(t, err)
	assert.Empty(t, out.Forecast)
	assert.Equal(t, forecast.DefaultConfig(), out.Config)
}

func TestForecastMisaligned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"timestamps": []string{"a", "b"},
			"forecast":   []float64{1},
		})
	})
	_, err := c.Forecast(context.Background(), forecast.DefaultConfig(), forecast.DataRef{UploadID: "x"})
	assert.ErrorIs(t, err, ErrMisaligned)
	assert.Equal(t, apperr.ServiceError, apperr.KindOf(err))
}

func TestParseHTTPError(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		payload string
		want    string
	}{
		{"string detail", 400, `{"detail":"Unsupported freq 'X'."}`, "Unsupported freq 'X'."},
		{"object detail", 400, `{"detail":{"message":"bad upload"}}`, "bad upload"},
		{"validation list", 422, `{"detail":[{"loc":["body","horizon"],"msg":"must be > 0"},{"msg":"second"}]}`, "body.horizon: must be > 0; second"},
		{"raw body", 502, `upstream down`, "upstream down"},
		{"empty body", 503, ``, "Service Unavailable (503)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := parseHTTPError(tc.status, []byte(tc.payload))
			assert.Equal(t, tc.want, err.Error())
			assert.ErrorIs(t, err, apperr.ErrService)
		})
	}
}

func TestServiceErrorSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Dataset 'nope' was not found."}`)
	})
	_, _, err := c.GetDataset(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, "Dataset 'nope' was not found.", err.Error())
}

func TestCanceledRequestIsServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Health(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrService)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncatedBodyIsServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = io.WriteString(w, `{"status":`)
	})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrService)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUploadMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "date", r.FormValue("ds_col"))
		assert.Equal(t, "sales", r.FormValue("y_col"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "sales.csv", hdr.Filename)
		body, _ := io.ReadAll(f)
		assert.Equal(t, "date,sales\n2024-01-01,3\n", string(body))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"upload_id":     "u-9",
			"rows":          1,
			"detected_freq": "D",
			"preview":       []map[string]any{{"ds": "2024-01-01", "y": 3}},
		})
	})

	res, err := c.Upload(context.Background(), "sales.csv", []byte("date,sales\n2024-01-01,3\n"), "date", "sales")
	require.NoError(t, err)
	assert.Equal(t, "u-9", res.UploadID)
	assert.Equal(t, "D", res.DetectedFreq)
	assert.Equal(t, forecast.Series{{DS: "2024-01-01", Y: 3}}, res.Preview)
}

func TestBacktestRoundTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.EqualValues(t, 3, got["windows"])
		assert.EqualValues(t, 2, got["step_size"])
		assert.Len(t, got["configs"], 1)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"config":    map[string]any{"module_type": "MLForecast", "model_type": "linear", "freq": "D", "season_length": 7, "horizon": 5},
				"aggregate": map[string]any{"rmse": 1.5},
				"windows": []map[string]any{
					{"window": 1, "train_size": 15, "test_size": 5, "metrics": map[string]any{"rmse": 1}},
					{"window": 2, "train_size": 17, "test_size": 5, "metrics": map[string]any{"rmse": 2}},
				},
			}},
			"leaderboard": []map[string]any{{
				"model_label": "MLForecast/linear",
				"module_type": "MLForecast",
				"metrics":     map[string]any{"rmse": 1.5},
				"config":      map[string]any{"module_type": "MLForecast", "model_type": "linear", "freq": "D", "season_length": 7, "horizon": 5},
			}},
		})
	})

	cfg := forecast.DefaultConfig()
	res, err := c.Backtest(context.Background(), []forecast.Config{cfg}, 3, 2, forecast.DataRef{UploadID: "u"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Len(t, res.Results[0].Windows, 2)
	assert.Equal(t, []int{1, 7, 14}, res.Results[0].Config.Lags(), "echoed config is normalized")
	require.Len(t, res.Leaderboard, 1)
	assert.Equal(t, "MLForecast/linear", res.Leaderboard[0].ModelLabel)
	assert.Equal(t, 3, res.Windows)
}

func TestSavedConfigs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/configs":
			_ = json.NewEncoder(w).Encode(map[string]any{"configs": []map[string]any{{
				"id": "c1", "name": "weekly", "created_at": 1700000000.5,
				"config": map[string]any{"module_type": "StatsForecast", "model_type": "AUTO_ETS", "freq": "W", "season_length": 52, "horizon": 8},
			}}})
		case r.Method == http.MethodDelete && r.URL.Path == "/configs/c1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Config 'x' was not found."}`)
		}
	})

	configs, err := c.ListConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "auto_ets", configs[0].Config.Model)
	assert.Equal(t, int64(1700000000), configs[0].CreatedAt.Unix())

	require.NoError(t, c.DeleteConfig(context.Background(), "c1"))
	assert.Error(t, c.DeleteConfig(context.Background(), "x"))
}
