package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type assetLogStore struct {
	docs     interfaces.DocumentStore
	database string
	fields   common.AssetLogFields
	logger   *common.Logger
}

var _ interfaces.AssetLogStore = (*assetLogStore)(nil)

func newAssetLogStore(docs interfaces.DocumentStore, database string, fields common.AssetLogFields, logger *common.Logger) *assetLogStore {
	return &assetLogStore{docs: docs, database: database, fields: fields, logger: logger}
}

func (s *assetLogStore) EnsureBalanceField(ctx context.Context) error {
	schema, err := s.docs.Schema(ctx, s.database)
	if err != nil {
		return fmt.Errorf("asset log schema: %w", err)
	}
	if schema.HasField(s.fields.Balance) {
		return nil
	}
	if err := s.docs.AddField(ctx, s.database, s.fields.Balance, models.FieldNumber); err != nil {
		return fmt.Errorf("add balance field %q: %w", s.fields.Balance, err)
	}
	s.logger.Info().Str("database", s.database).Str("field", s.fields.Balance).Msg("Asset log balance field created")
	return nil
}

func (s *assetLogStore) ListEntries(ctx context.Context, window models.DateWindow, limit int) ([]*models.LedgerEntry, error) {
	q := models.Query{Sorts: []models.Sort{{Field: s.fields.Date, Descending: limit > 0}}}
	if filters := dateWindowFilter(s.fields.Date, window); len(filters) > 0 {
		q.Filter = models.And(filters...)
	}

	records, err := queryAll(ctx, s.docs, s.database, q, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LedgerEntry, 0, len(records))
	for _, rec := range records {
		e, ok := s.toEntry(rec)
		if !ok {
			s.logger.DataGap(common.DataGap{Database: s.database, RecordID: rec.ID, Reason: "missing date or group"})
			continue
		}
		entries = append(entries, e)
	}
	if limit > 0 {
		// fetched newest first to keep the newest limit rows
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries, nil
}

func (s *assetLogStore) CreateEntry(ctx context.Context, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	rec, err := s.docs.Create(ctx, s.database, s.toFields(entry))
	if err != nil {
		return nil, fmt.Errorf("create asset log entry %s: %w", entry.Key(), err)
	}
	out := *entry
	out.ID = rec.ID
	return &out, nil
}

func (s *assetLogStore) UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if _, err := s.docs.Update(ctx, entry.ID, s.toFields(entry)); err != nil {
		return fmt.Errorf("update asset log entry %s: %w", entry.Key(), err)
	}
	return nil
}

func (s *assetLogStore) toFields(e *models.LedgerEntry) models.Fields {
	fields := models.Fields{}
	setIf(fields, s.fields.Date, models.DateValue(e.Date))
	setIf(fields, s.fields.Group, models.SelectValue(e.Group))
	setIf(fields, s.fields.Delta, models.NumberValue(e.Delta))
	setIf(fields, s.fields.Balance, models.NumberValue(e.Balance))
	return fields
}

func (s *assetLogStore) toEntry(rec *models.Record) (*models.LedgerEntry, bool) {
	raw, ok := rec.Date(s.fields.Date)
	if !ok {
		return nil, false
	}
	date, ok := common.NormalizeDate(raw)
	if !ok {
		return nil, false
	}
	group, ok := rec.Text(s.fields.Group)
	if !ok {
		return nil, false
	}
	e := &models.LedgerEntry{ID: rec.ID, Date: date, Group: group}
	e.Delta, _ = rec.Number(s.fields.Delta)
	e.Balance, _ = rec.Number(s.fields.Balance)
	return e, true
}
