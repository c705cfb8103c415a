package ledger

import (
	"context"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Upserter writes ledger entries to the asset log keyed by date and group.
type Upserter struct {
	assetLog interfaces.AssetLogStore
	logger   *common.Logger
}

func NewUpserter(assetLog interfaces.AssetLogStore, logger *common.Logger) *Upserter {
	return &Upserter{assetLog: assetLog, logger: logger}
}

// Upsert updates existing rows in window that match an entry's natural key
// and creates the rest. It returns how many rows were created and updated.
// Running it twice with the same entries creates nothing the second time.
func (u *Upserter) Upsert(ctx context.Context, window models.DateWindow, entries []models.LedgerEntry) (created, updated int, err error) {
	if err := u.assetLog.EnsureBalanceField(ctx); err != nil {
		u.logger.Warn().Err(err).Msg("Could not ensure asset log balance field")
	}

	existing, err := u.assetLog.ListEntries(ctx, window, 0)
	if err != nil {
		return 0, 0, err
	}
	index := make(map[models.NaturalKey]string, len(existing))
	for _, e := range existing {
		index[e.Key()] = e.ID
	}

	for i := range entries {
		e := entries[i]
		if id, ok := index[e.Key()]; ok {
			e.ID = id
			if err := u.assetLog.UpdateEntry(ctx, &e); err != nil {
				return created, updated, err
			}
			updated++
			continue
		}
		row, err := u.assetLog.CreateEntry(ctx, &e)
		if err != nil {
			return created, updated, err
		}
		index[e.Key()] = row.ID
		created++
	}
	return created, updated, nil
}
