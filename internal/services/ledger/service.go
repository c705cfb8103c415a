// Package ledger maintains the asset log: daily per-group deltas and running
// balances derived from transactions, upserted idempotently.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// List limits for ListEntries.
const (
	DefaultListLimit = 365
	MaxListLimit     = 2000
)

// Service implements LedgerService
type Service struct {
	transactions interfaces.TransactionStore
	assetLog     interfaces.AssetLogStore
	aggregator   *Aggregator
	upserter     *Upserter
	windows      *WindowPolicy
	syncWindows  *WindowPolicy
	leases       *Leases
	groupBy      models.GroupBy
	logger       *common.Logger
}

var _ interfaces.LedgerService = (*Service)(nil)

// NewService creates a ledger service from the ledger config section.
func NewService(transactions interfaces.TransactionStore, assetLog interfaces.AssetLogStore, cfg common.LedgerConfig, logger *common.Logger) (*Service, error) {
	groupBy, err := models.ParseGroupBy(cfg.AggregateBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	syncDays := cfg.SyncWindowDays
	if syncDays <= 0 {
		syncDays = 90
	}
	return &Service{
		transactions: transactions,
		assetLog:     assetLog,
		aggregator:   NewAggregator(transactions),
		upserter:     NewUpserter(assetLog, logger),
		windows:      NewWindowPolicy(cfg.FocusWindowDays, cfg.DefaultWindowDays),
		syncWindows:  NewWindowPolicy(cfg.FocusWindowDays, syncDays),
		leases:       NewLeases(),
		groupBy:      groupBy,
		logger:       logger,
	}, nil
}

func (s *Service) resolveGroupBy(g models.GroupBy) (models.GroupBy, error) {
	if g == "" {
		return s.groupBy, nil
	}
	parsed, err := models.ParseGroupBy(string(g))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return parsed, nil
}

// focus reads the changed transaction. Its date centres the window and its
// asset type is reported as the focus group. A failed read falls back to the
// default window.
func (s *Service) focus(ctx context.Context, recordID string) (models.DateWindow, string, error) {
	t, err := s.transactions.GetTransaction(ctx, recordID)
	if err != nil {
		if ctx.Err() != nil {
			return models.DateWindow{}, "", ctx.Err()
		}
		s.logger.Warn().Str("page_id", recordID).Err(err).Msg("Changed transaction unreadable; using default window")
		return s.windows.Resolve(""), "", nil
	}
	focal := t.Date
	if focal == "" {
		focal = s.windows.today()
	}
	return s.windows.Resolve(focal), t.AssetType, nil
}

// Recompute rebuilds the asset log for the window around a changed
// transaction, or the trailing default window. Transactions count when
// their amount is confirmed or they are verified, unless req.FlagMode says
// otherwise.
func (s *Service) Recompute(ctx context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error) {
	groupBy, err := s.resolveGroupBy(req.GroupBy)
	if err != nil {
		return nil, err
	}
	mode := req.FlagMode
	if mode == models.FlagNone {
		mode = models.FlagAny
	} else if mode, err = models.ParseFlagMode(string(mode)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	window := s.windows.Resolve("")
	focusGroup := ""
	if req.RecordID != "" {
		if window, focusGroup, err = s.focus(ctx, req.RecordID); err != nil {
			return nil, err
		}
	}
	if window, err = Override(window, req.From, req.To); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, window, groupBy, mode)
	if err != nil {
		return nil, err
	}
	result.FocusGroup = focusGroup
	return result, nil
}

// Sync rebuilds the asset log for the cash (verified) or forecast (amount
// confirmed) view over the trailing sync window.
func (s *Service) Sync(ctx context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error) {
	groupBy, err := s.resolveGroupBy(req.GroupBy)
	if err != nil {
		return nil, err
	}
	mode, err := models.ParseFlagMode(string(req.FlagMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	window, err := Override(s.syncWindows.Resolve(""), req.From, req.To)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, window, groupBy, mode)
}

// run aggregates, reconciles and upserts one window under a lease.
func (s *Service) run(ctx context.Context, window models.DateWindow, groupBy models.GroupBy, mode models.FlagMode) (*models.RecomputeResult, error) {
	release, err := s.leases.Acquire(ctx, window, groupBy)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	deltas, gaps, err := s.aggregator.Aggregate(ctx, window, groupBy, mode)
	if err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}
	starting, priorGaps, err := s.aggregator.StartingBalances(ctx, window.From, groupBy, mode)
	if err != nil {
		return nil, fmt.Errorf("starting balances: %w", err)
	}

	entries := Reconcile(deltas, starting)
	created, updated, err := s.upserter.Upsert(ctx, window, entries)
	if err != nil {
		return nil, fmt.Errorf("upsert asset log: %w", err)
	}

	result := &models.RecomputeResult{
		WindowFrom:     window.From,
		WindowTo:       window.To,
		GroupBy:        groupBy,
		FlagMode:       mode,
		EntriesWritten: created + updated,
		Created:        created,
		Updated:        updated,
		Skipped:        gaps + priorGaps,
	}
	s.logger.Info().
		Str("from", window.From).Str("to", window.To).
		Str("group_by", string(groupBy)).Str("mode", string(mode)).
		Int("created", created).Int("updated", updated).Int("skipped", result.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Asset log recomputed")
	return result, nil
}

// ListEntries returns asset log rows between from and to (either may be
// empty), keeping the newest limit rows.
func (s *Service) ListEntries(ctx context.Context, from, to string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	window, err := Override(models.DateWindow{}, from, to)
	if err != nil {
		return nil, err
	}
	return s.assetLog.ListEntries(ctx, window, limit)
}
