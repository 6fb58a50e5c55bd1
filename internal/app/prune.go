package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Prune deletes archived runs created before opts.Before.
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	if opts.Before.IsZero() {
		return errors.New("prune cutoff is required")
	}
	cutoff := opts.Before.UTC()

	store, closeStore, err := a.requireStore(ctx, "prune runs")
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.DryRun {
		n, err := store.CountRunsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		total, err := store.CountRuns(ctx)
		if err != nil {
			return err
		}
		a.Logger.Warn().Msg("prune dry-run: nothing is deleted")
		fmt.Fprintf(a.Out, "%d of %d runs were created before %s\n", n, total, cutoff.Format(time.RFC3339))
		return nil
	}

	removed, err := store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	a.Logger.Info().Int64("removed", removed).Time("before", cutoff).Msg("archive pruned")
	fmt.Fprintf(a.Out, "deleted %d runs created before %s\n", removed, cutoff.Format(time.RFC3339))
	return nil
}
