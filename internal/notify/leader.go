package notify

import (
	"time"

	"forecast-workbench/internal/forecast"
)

// LeaderTracker remembers the current leaderboard leader and reports changes.
type LeaderTracker struct {
	leader string
	seen   bool
}

// Observe compares the top entry with the remembered leader. The first
// observation with a leader only primes the tracker unless announceFirst is set.
func (t *LeaderTracker) Observe(entries []forecast.LeaderboardEntry, source string, at time.Time, announceFirst bool) (Notification, bool) {
	if len(entries) == 0 {
		return Notification{}, false
	}
	top := entries[0]
	label := leaderLabel(top)

	previous, primed := t.leader, t.seen
	t.leader, t.seen = label, true
	if previous == label {
		return Notification{}, false
	}
	if !primed && !announceFirst {
		return Notification{}, false
	}

	return Notification{
		At:       at,
		Source:   source,
		Previous: previous,
		Current:  label,
		Score:    top.Score,
		Metrics:  top.Metrics,
		Runs:     len(entries),
	}, true
}

// Leader returns the remembered leader label.
func (t *LeaderTracker) Leader() string {
	return t.leader
}

// Reset forgets the leader, e.g. after the data source changed.
func (t *LeaderTracker) Reset() {
	t.leader, t.seen = "", false
}

func leaderLabel(e forecast.LeaderboardEntry) string {
	if e.Label != "" {
		return e.Label
	}
	return e.Config.Label()
}
