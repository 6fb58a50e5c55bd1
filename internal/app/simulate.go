package app

import (
	"context"
	"time"

	"forecast-workbench/internal/forecast"
	"forecast-workbench/internal/notify"
)

// SimulateNotification sends a synthetic leader change through the
// configured notifier.
func (a *App) SimulateNotification(ctx context.Context, previous, current string, rmse float64) error {
	note := notify.Notification{
		At:       time.Now().UTC(),
		Source:   "simulation",
		Previous: previous,
		Current:  current,
		Score:    forecast.Score(forecast.Metrics{RMSE: forecast.Float(rmse)}),
		Metrics:  forecast.Metrics{RMSE: forecast.Float(rmse)},
		Note:     "This is a test notification.",
	}
	return a.newNotifier().Notify(ctx, note)
}
