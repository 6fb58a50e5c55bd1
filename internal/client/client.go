package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"forecast-workbench/internal/apperr"
	"forecast-workbench/internal/forecast"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultUserAgent = "forecastbench/1.0"
	maxErrorBody     = 512
)

// ErrMisaligned means the service returned forecast or bound arrays whose
// length differs from the timestamps.
var ErrMisaligned = apperr.New(apperr.ServiceError, "forecast and timestamps lengths must match")

// Options parameterise the forecasting service client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
}

// Client talks to the forecasting service over HTTP.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// New constructs a client.
func New(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.Transport != nil {
		httpClient.Transport = opts.Transport
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "forecast_client").Logger(),
		client:  httpClient,
		baseURL: baseURL,
	}
}

// BaseURL returns the resolved service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out healthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// UploadResult is the service's answer to a file upload.
type UploadResult struct {
	UploadID     string
	Rows         int
	DetectedFreq string
	Preview      forecast.Series
}

// Upload sends a CSV file with its column mapping.
func (c *Client) Upload(ctx context.Context, name string, data []byte, dsCol, yCol string) (UploadResult, error) {
	if strings.TrimSpace(name) == "" {
		name = "upload.csv"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := part.Write(data); err != nil {
		return UploadResult{}, err
	}
	if dsCol != "" {
		if err := w.WriteField("ds_col", dsCol); err != nil {
			return UploadResult{}, err
		}
	}
	if yCol != "" {
		if err := w.WriteField("y_col", yCol); err != nil {
			return UploadResult{}, err
		}
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, err
	}

	payload, err := c.do(ctx, http.MethodPost, "/upload", w.FormDataContentType(), &body)
	if err != nil {
		return UploadResult{}, err
	}

	var out uploadResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return UploadResult{}, decodeError("/upload", err)
	}
	c.logger.Debug().Str("upload_id", out.UploadID).Int("rows", out.Rows).Msg("upload accepted")
	return UploadResult{
		UploadID:     out.UploadID,
		Rows:         out.Rows,
		DetectedFreq: out.DetectedFreq,
		Preview:      out.Preview,
	}, nil
}

// ListDatasets returns the bundled sample catalogue without full records.
func (c *Client) ListDatasets(ctx context.Context) ([]forecast.DatasetInfo, error) {
	var out datasetsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/datasets", nil, &out); err != nil {
		return nil, err
	}
	infos := make([]forecast.DatasetInfo, 0, len(out.Datasets))
	for _, d := range out.Datasets {
		infos = append(infos, d.info())
	}
	return infos, nil
}

// GetDataset returns one sample dataset with all of its records.
func (c *Client) GetDataset(ctx context.Context, id string) (forecast.DatasetInfo, forecast.Series, error) {
	var out datasetDetailResponse
	if err := c.doJSON(ctx, http.MethodGet, "/datasets/"+url.PathEscape(id), nil, &out); err != nil {
		return forecast.DatasetInfo{}, nil, err
	}
	return out.Dataset.info(), out.Records, nil
}

// Forecast runs a single model.
func (c *Client) Forecast(ctx context.Context, cfg forecast.Config, ref forecast.DataRef) (forecast.Output, error) {
	req := forecastRequest{WireConfig: cfg.Wire(), dataFields: newDataFields(ref)}

	var out forecastResponse
	if err := c.doJSON(ctx, http.MethodPost, "/forecast", req, &out); err != nil {
		return forecast.Output{}, err
	}
	return out.output(cfg)
}

// ForecastBatch runs several configs on one split.
func (c *Client) ForecastBatch(ctx context.Context, cfgs []forecast.Config, ref forecast.DataRef) (forecast.BatchResult, error) {
	req := batchRequest{Configs: wireConfigs(cfgs), dataFields: newDataFields(ref)}

	var out batchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/forecast/batch", req, &out); err != nil {
		return forecast.BatchResult{}, err
	}

	result := forecast.BatchResult{
		Results:     make([]forecast.Output, 0, len(out.Results)),
		Leaderboard: leaderboardRows(out.Leaderboard),
	}
	for i, r := range out.Results {
		fallback := forecast.DefaultConfig()
		if i < len(cfgs) {
			fallback = cfgs[i]
		}
		o, err := r.output(fallback)
		if err != nil {
			return forecast.BatchResult{}, fmt.Errorf("batch result %d: %w", i, err)
		}
		result.Results = append(result.Results, o)
	}
	return result, nil
}

// Backtest runs rolling-window evaluation across configs.
func (c *Client) Backtest(ctx context.Context, cfgs []forecast.Config, windows, step int, ref forecast.DataRef) (forecast.BacktestResult, error) {
	req := backtestRequest{
		Configs:    wireConfigs(cfgs),
		Windows:    windows,
		StepSize:   step,
		dataFields: newDataFields(ref),
	}

	var out backtestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/backtest", req, &out); err != nil {
		return forecast.BacktestResult{}, err
	}

	result := forecast.BacktestResult{
		Results:     make([]forecast.BacktestModel, 0, len(out.Results)),
		Leaderboard: leaderboardRows(out.Leaderboard),
		Windows:     windows,
		StepSize:    step,
	}
	for _, r := range out.Results {
		model := forecast.BacktestModel{
			Config:    r.Config.Config(),
			Aggregate: r.Aggregate,
			Windows:   make([]forecast.BacktestWindow, 0, len(r.Windows)),
		}
		for _, w := range r.Windows {
			model.Windows = append(model.Windows, forecast.BacktestWindow{
				Window:    w.Window,
				TrainSize: w.TrainSize,
				TestSize:  w.TestSize,
				Metrics:   w.Metrics,
			})
		}
		result.Results = append(result.Results, model)
	}
	return result, nil
}

// SavedConfig is a named configuration held by the service.
type SavedConfig struct {
	ID          string
	Name        string
	Description string
	Config      forecast.Config
	CreatedAt   time.Time
}

// ListConfigs returns every saved configuration.
func (c *Client) ListConfigs(ctx context.Context) ([]SavedConfig, error) {
	var out savedConfigsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/configs", nil, &out); err != nil {
		return nil, err
	}
	configs := make([]SavedConfig, 0, len(out.Configs))
	for _, s := range out.Configs {
		configs = append(configs, s.saved())
	}
	return configs, nil
}

// GetConfig returns a single saved configuration.
func (c *Client) GetConfig(ctx context.Context, id string) (SavedConfig, error) {
	var out savedConfig
	if err := c.doJSON(ctx, http.MethodGet, "/configs/"+url.PathEscape(id), nil, &out); err != nil {
		return SavedConfig{}, err
	}
	return out.saved(), nil
}

// SaveConfig stores cfg under name.
func (c *Client) SaveConfig(ctx context.Context, name, description string, cfg forecast.Config) (SavedConfig, error) {
	req := savedConfigRequest{Name: name, Description: description, Config: cfg.Wire()}
	var out savedConfig
	if err := c.doJSON(ctx, http.MethodPost, "/configs", req, &out); err != nil {
		return SavedConfig{}, err
	}
	return out.saved(), nil
}

// DeleteConfig removes a saved configuration.
func (c *Client) DeleteConfig(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/configs/"+url.PathEscape(id), "", nil)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	payload, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return decodeError(path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.ServiceError, fmt.Sprintf("%s %s interrupted: %v", method, path, err), err)
		}
		return nil, apperr.Wrap(apperr.ServiceError, fmt.Sprintf("forecast service unreachable: %v", err), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServiceError, fmt.Sprintf("read %s response: %v", path, err), err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("service call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

func decodeError(path string, err error) error {
	return apperr.Wrap(apperr.ServiceError, fmt.Sprintf("decode %s response: %v", path, err), err)
}

// parseHTTPError flattens the service's `detail` field into one message.
// detail may be a string, an object with msg/message, or a list of
// validation errors.
func parseHTTPError(status int, payload []byte) error {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Detail) > 0 {
		if msg := detailMessage(envelope.Detail); msg != "" {
			return apperr.New(apperr.ServiceError, msg)
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" {
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return apperr.New(apperr.ServiceError, text)
	}
	if text := http.StatusText(status); text != "" {
		return apperr.Servicef("%s (%d)", text, status)
	}
	return apperr.Servicef("forecast service error (%d)", status)
}

func detailMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj detailObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		if m := obj.text(); m != "" {
			return m
		}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if m := detailMessage(item); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

type detailObject struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
	Loc     []any  `json:"loc"`
}

func (d detailObject) text() string {
	msg := strings.TrimSpace(d.Msg)
	if msg == "" {
		msg = strings.TrimSpace(d.Message)
	}
	if msg == "" {
		return ""
	}
	if len(d.Loc) > 0 {
		loc := make([]string, 0, len(d.Loc))
		for _, part := range d.Loc {
			loc = append(loc, fmt.Sprint(part))
		}
		return strings.Join(loc, ".") + ": " + msg
	}
	return msg
}
