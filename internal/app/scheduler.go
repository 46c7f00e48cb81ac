package app

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// startRefreshScheduler tops up the price cache on a fixed interval for every
// user with stored holdings. Each tick is the same incremental path a login
// takes, so a tick after a quiet night fetches only the missing days.
func startRefreshScheduler(ctx context.Context, backfillService interfaces.BackfillService, txnStore interfaces.TransactionStore, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price refresh scheduler: stopped")
			return
		case <-ticker.C:
			refreshAllUsers(ctx, backfillService, txnStore, logger)
		}
	}
}

func refreshAllUsers(ctx context.Context, backfillService interfaces.BackfillService, txnStore interfaces.TransactionStore, logger *common.Logger) {
	start := time.Now()

	userIDs, err := txnStore.ListUserIDs(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price refresh: failed to list users")
		return
	}
	if len(userIDs) == 0 {
		return
	}

	refreshed := 0
	for _, userID := range userIDs {
		if err := backfillService.OnUserLogin(ctx, userID); err != nil {
			if errors.Is(err, interfaces.ErrBackfillRunning) {
				logger.Debug().Str("user_id", userID).Msg("Price refresh: backfill already running, skipped")
				continue
			}
			logger.Warn().Str("user_id", userID).Err(err).Msg("Price refresh: backfill failed")
			continue
		}
		refreshed++
	}

	logger.Info().
		Int("users", refreshed).
		Dur("elapsed", time.Since(start)).
		Msg("Price refresh: complete")
}
