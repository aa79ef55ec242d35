package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notehd/internal/lib/logger/sl"
)

// * PurgeAbandonedSignups removes never confirmed accounts whose passcode expired more than grace ago
func (a *Auth) PurgeAbandonedSignups(ctx context.Context, grace time.Duration) (int64, error) {
	const op = "auth.PurgeAbandonedSignups"

	cutoff := a.now().Add(-grace)

	n, err := a.accSaver.DeleteUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// RunJanitor purges abandoned signups every interval until ctx is cancelled.
// A non-positive interval disables it.
func (a *Auth) RunJanitor(ctx context.Context, interval, grace time.Duration) {
	const op = "auth.RunJanitor"

	log := a.log.With(
		slog.String("op", op),
	)

	if interval <= 0 {
		log.Debug("janitor disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.PurgeAbandonedSignups(ctx, grace)
			if err != nil {
				log.Error("failed to purge abandoned signups", sl.Err(err))
				continue
			}

			if n > 0 {
				log.Info("abandoned signups purged", slog.Int64("count", n))
			}
		}
	}
}
