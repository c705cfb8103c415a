package app

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// startSnapshotScheduler records a valuation snapshot on a fixed interval.
// External cron triggers remain the primary path; this covers deployments
// without one.
func startSnapshotScheduler(ctx context.Context, snapshots interfaces.SnapshotService, logger *common.Logger, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Snapshot scheduler: started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Snapshot scheduler: stopped")
			return
		case <-ticker.C:
			recordScheduledSnapshot(ctx, snapshots, logger, now())
		}
	}
}

func recordScheduledSnapshot(ctx context.Context, snapshots interfaces.SnapshotService, logger *common.Logger, at time.Time) {
	start := time.Now()

	result, err := snapshots.RecordSnapshot(ctx, at)
	if err != nil {
		logger.Warn().Err(err).Msg("Snapshot scheduler: record failed")
		return
	}

	logger.Info().
		Str("date", result.Snapshot.Date).
		Float64("total", result.Snapshot.TotalValue).
		Bool("replaced", result.Replaced).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot scheduler: complete")
}
