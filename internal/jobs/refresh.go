package jobs

import (
	"context"
	"time"

	"littlex/internal/actions"
	"littlex/internal/logging"
)

// RunRefreshOnce pulls the profile, the who-to-follow directory, and the
// feed in that order; profile first so later reducers know our username.
func RunRefreshOnce(ctx context.Context, d *actions.Dispatcher) error {
	if err := d.GetProfile(ctx); err != nil {
		return err
	}
	if err := d.LoadUserProfiles(ctx); err != nil {
		return err
	}
	return d.FetchTweets(ctx)
}

// RunRefreshLoop runs RunRefreshOnce immediately and then on a ticker until
// ctx is cancelled. A failed cycle is logged, not fatal; the next tick
// retries.
func RunRefreshLoop(ctx context.Context, d *actions.Dispatcher, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	if err := RunRefreshOnce(ctx, d); err != nil {
		logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("refresh_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if err := RunRefreshOnce(ctx, d); err != nil {
				logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
