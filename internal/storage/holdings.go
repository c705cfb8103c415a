package storage

import (
	"context"
	"sort"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type holdingStore struct {
	docs     interfaces.DocumentStore
	database string
	fields   common.HoldingFields
	logger   *common.Logger
}

var _ interfaces.HoldingStore = (*holdingStore)(nil)

func newHoldingStore(docs interfaces.DocumentStore, database string, fields common.HoldingFields, logger *common.Logger) *holdingStore {
	return &holdingStore{docs: docs, database: database, fields: fields, logger: logger}
}

// ListHoldings returns valued holdings sorted by category then name.
func (s *holdingStore) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	records, err := queryAll(ctx, s.docs, s.database, models.Query{}, 0)
	if err != nil {
		return nil, err
	}

	holdings := make([]*models.Holding, 0, len(records))
	for _, rec := range records {
		h, reason := s.toHolding(rec)
		if h == nil {
			s.logger.DataGap(common.DataGap{Database: s.database, RecordID: rec.ID, Reason: reason})
			continue
		}
		holdings = append(holdings, h)
	}

	sort.SliceStable(holdings, func(i, j int) bool {
		if holdings[i].Category != holdings[j].Category {
			return holdings[i].Category < holdings[j].Category
		}
		return holdings[i].Name < holdings[j].Name
	})

	s.logger.Debug().Int("holdings", len(holdings)).Int("records", len(records)).Msg("Holdings loaded")
	return holdings, nil
}

// toHolding maps a record to a holding, or returns the reason it was skipped.
func (s *holdingStore) toHolding(rec *models.Record) (*models.Holding, string) {
	name, ok := rec.Text(s.fields.Name)
	if !ok {
		return nil, "missing name"
	}
	qty, ok := rec.Number(s.fields.Quantity)
	if !ok || qty <= 0 {
		return nil, "non-positive quantity"
	}
	srcText, _ := rec.Text(s.fields.PriceSource)
	src, ok := models.ParsePriceSource(srcText)
	if !ok {
		return nil, "unknown price source " + srcText
	}

	h := &models.Holding{
		ID:          rec.ID,
		Name:        name,
		Quantity:    qty,
		PriceSource: src,
	}
	h.Category, _ = rec.Text(s.fields.Category)
	if sym, ok := rec.Text(s.fields.Symbol); ok {
		h.Symbol = sym
	} else {
		h.Symbol = name
	}
	if p, ok := rec.Number(s.fields.ManualPrice); ok {
		h.ManualPrice = &p
	}
	if cur, ok := rec.Text(s.fields.Currency); ok {
		h.Currency = common.NormalizeCurrency(cur, "")
	}
	h.PriceID, _ = rec.Text(s.fields.PriceID)
	return h, ""
}
