package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"forecast-workbench/internal/forecast"
)

// Notification describes a change of leaderboard leader.
type Notification struct {
	At       time.Time
	Source   string
	Previous string
	Current  string
	Score    float64
	Metrics  forecast.Metrics
	Runs     int
	Note     string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// TelegramOptions configure the Telegram Bot API notifier.
type TelegramOptions struct {
	BotToken string
	ChatID   string
	APIBase  string
	Timeout  time.Duration
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(opts TelegramOptions, logger zerolog.Logger) *TelegramNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.APIBase == "" {
		opts.APIBase = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: opts.BotToken,
		chatID:   opts.ChatID,
		baseURL:  strings.TrimRight(opts.APIBase, "/"),
		client:   &http.Client{Timeout: opts.Timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    Render(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram returned ok=false: %s", result.Description)
		}
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().
		Str("source", note.Source).
		Str("leader", note.Current).
		Str("previous", note.Previous).
		Msg("leader change sent (Telegram)")
	return nil
}

// LogNotifier writes notifications to the log only.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a notifier that logs at info level.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify_log").Logger()}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info().
		Time("at", note.At).
		Str("source", note.Source).
		Str("leader", note.Current).
		Str("previous", note.Previous).
		Str("score", formatScore(note.Score)).
		Msg("leaderboard leader changed")
	return nil
}

// Render formats a notification as plain text.
func Render(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Forecast Leaderboard]\n")
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", note.At.UTC().Format(time.RFC3339)))
	if note.Source != "" {
		builder.WriteString(fmt.Sprintf("Source: %s\n", note.Source))
	}
	previous := note.Previous
	if previous == "" {
		previous = "(none)"
	}
	builder.WriteString(fmt.Sprintf("Leader: %s (was %s)\n", note.Current, previous))
	builder.WriteString(fmt.Sprintf("Score: %s\n", formatScore(note.Score)))
	builder.WriteString(fmt.Sprintf("MAE: %s  RMSE: %s  MAPE: %s\n",
		FormatMetric(note.Metrics.MAE, 3), FormatMetric(note.Metrics.RMSE, 3), FormatMetric(note.Metrics.MAPE, 2)))
	if note.Runs > 0 {
		builder.WriteString(fmt.Sprintf("Runs: %d\n", note.Runs))
	}
	if note.Note != "" {
		builder.WriteString(note.Note)
	}
	return builder.String()
}

// FormatMetric renders an optional metric with fixed places, "-" when absent.
func FormatMetric(v *float64, places int32) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}

func formatScore(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(score).StringFixed(4)
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
