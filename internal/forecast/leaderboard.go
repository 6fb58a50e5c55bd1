package forecast

import (
	"math"
	"sort"
	"sync"
	"time"
)

// MAEOffset pushes MAE-only scores behind every entry that has an RMSE.
const MAEOffset = 1_000_000

// LeaderboardEntry is the latest run for one RunKey together with its score.
type LeaderboardEntry struct {
	Key       RunKey
	RunID     string
	Label     string
	Metrics   Metrics
	Score     float64
	CreatedAt time.Time
	Seq       uint64
	Config    Config
}

// Score ranks a metrics set: RMSE when finite, else MAE+MAEOffset, else +Inf.
func Score(m Metrics) float64 {
	if finite(m.RMSE) {
		return *m.RMSE
	}
	if finite(m.MAE) {
		return *m.MAE + MAEOffset
	}
	return math.Inf(1)
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Recompute builds the ranked leaderboard from a run history. For each RunKey
// the run with the highest Seq is kept. Ranking is by Score ascending, then
// CreatedAt descending; full ties keep history order.
func Recompute(history []RunResult) []LeaderboardEntry {
	latest := make(map[RunKey]int, len(history))
	order := make([]RunKey, 0, len(history))
	for i, run := range history {
		key := run.Key()
		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = i
			continue
		}
		if newer(run, history[prev]) {
			latest[key] = i
		}
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, key := range order {
		run := history[latest[key]]
		entries = append(entries, LeaderboardEntry{
			Key:       key,
			RunID:     run.RunID,
			Label:     run.Config.Label(),
			Metrics:   run.Metrics,
			Score:     Score(run.Metrics),
			CreatedAt: run.CreatedAt,
			Seq:       run.Seq,
			Config:    run.Config,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return entries
}

func newer(a, b RunResult) bool {
	if a.Seq != b.Seq {
		return a.Seq > b.Seq
	}
	return !a.CreatedAt.Before(b.CreatedAt)
}

// History is the append-only sequence of completed runs.
type History struct {
	mu   sync.RWMutex
	runs []RunResult
	seq  uint64
}

// Append stamps run with the next sequence number and stores it.
func (h *History) Append(run RunResult) RunResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	run.Seq = h.seq
	h.runs = append(h.runs, run)
	return run
}

// Runs returns a copy of the history in append order.
func (h *History) Runs() []RunResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RunResult, len(h.runs))
	copy(out, h.runs)
	return out
}

// Len returns the number of runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}

// Reset discards every run. The sequence keeps increasing.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = nil
}

// Leaderboard recomputes the ranking over the current history.
func (h *History) Leaderboard() []LeaderboardEntry {
	return Recompute(h.Runs())
}
