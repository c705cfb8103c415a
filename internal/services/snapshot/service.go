// Package snapshot records daily portfolio valuations and compares against them
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// List limits for ListSnapshots.
const (
	DefaultListLimit = 90
	MaxListLimit     = 365
)

// sameDayScan bounds how far back a replacing write looks for the prior day.
const sameDayScan = 10

// Service implements SnapshotService
type Service struct {
	valuation      interfaces.ValuationService
	snapshots      interfaces.SnapshotStore
	replaceSameDay bool
	logger         *common.Logger
}

var _ interfaces.SnapshotService = (*Service)(nil)

// NewService creates a snapshot service. With replaceSameDay a second
// snapshot on the same date updates the first instead of appending.
func NewService(valuation interfaces.ValuationService, snapshots interfaces.SnapshotStore, replaceSameDay bool, logger *common.Logger) *Service {
	return &Service{
		valuation:      valuation,
		snapshots:      snapshots,
		replaceSameDay: replaceSameDay,
		logger:         logger,
	}
}

// changes computes the absolute and percent change of total against prev.
// Percent is undefined when prev is zero; both are undefined without prev.
func changes(total float64, prev *models.Snapshot) (abs, pct *float64) {
	if prev == nil {
		return nil, nil
	}
	t := decimal.NewFromFloat(total)
	p := decimal.NewFromFloat(prev.TotalValue)
	diff := t.Sub(p)

	a := diff.Round(2).InexactFloat64()
	abs = &a
	if !p.IsZero() {
		v := diff.Div(p).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		pct = &v
	}
	return abs, pct
}

// Compare values the portfolio and compares it with the latest snapshot.
func (s *Service) Compare(ctx context.Context) (*models.ValuationComparison, error) {
	val, err := s.valuation.ComputeValuation(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.snapshots.LatestSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	abs, pct := changes(val.TotalValue, last)
	return &models.ValuationComparison{
		Valuation:      val,
		LastSnapshot:   last,
		ChangeAbsolute: abs,
		ChangePercent:  pct,
	}, nil
}

// previousFor returns the snapshot the change for date is measured against.
func (s *Service) previousFor(ctx context.Context, date string) (*models.Snapshot, error) {
	if !s.replaceSameDay {
		return s.snapshots.LatestSnapshot(ctx)
	}
	recent, err := s.snapshots.RecentSnapshots(ctx, sameDayScan)
	if err != nil {
		return nil, err
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Date < date {
			return recent[i], nil
		}
	}
	return nil, nil
}

// RecordSnapshot values the portfolio and persists it as the snapshot for date.
func (s *Service) RecordSnapshot(ctx context.Context, date time.Time) (*models.SnapshotResult, error) {
	day := common.FormatDate(date)

	val, err := s.valuation.ComputeValuation(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := s.previousFor(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous snapshot: %w", err)
	}

	snap := &models.Snapshot{Date: day, TotalValue: val.TotalValue}
	snap.ChangeAbsolute, snap.ChangePercent = changes(val.TotalValue, prev)
	result := &models.SnapshotResult{Previous: prev}

	if s.replaceSameDay {
		existing, err := s.snapshots.SnapshotOnDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to look up snapshot for %s: %w", day, err)
		}
		if existing != nil {
			snap.ID = existing.ID
			updated, err := s.snapshots.UpdateSnapshot(ctx, snap)
			if err != nil {
				return nil, err
			}
			result.Snapshot = updated
			result.Replaced = true
			s.logger.Info().Str("date", day).Float64("total", snap.TotalValue).Msg("Snapshot replaced")
			return result, nil
		}
	}

	created, err := s.snapshots.CreateSnapshot(ctx, snap)
	if err != nil {
		return nil, err
	}
	result.Snapshot = created
	s.logger.Info().Str("date", day).Float64("total", snap.TotalValue).Str("currency", val.BaseCurrency).Msg("Snapshot recorded")
	return result, nil
}

// ListSnapshots returns up to limit recent snapshots ascending by date.
func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.snapshots.RecentSnapshots(ctx, limit)
}
