package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type snapshotStore struct {
	docs     interfaces.DocumentStore
	database string
	fields   common.SnapshotFields
	logger   *common.Logger
}

var _ interfaces.SnapshotStore = (*snapshotStore)(nil)

func newSnapshotStore(docs interfaces.DocumentStore, database string, fields common.SnapshotFields, logger *common.Logger) *snapshotStore {
	return &snapshotStore{docs: docs, database: database, fields: fields, logger: logger}
}

func (s *snapshotStore) newestFirst() models.Query {
	return models.Query{Sorts: []models.Sort{{Field: s.fields.Date, Descending: true}}}
}

func (s *snapshotStore) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	records, err := queryAll(ctx, s.docs, s.database, s.newestFirst(), 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	snap, ok := s.toSnapshot(records[0])
	if !ok {
		s.logger.DataGap(common.DataGap{Database: s.database, RecordID: records[0].ID, Reason: "latest snapshot has no readable total"})
		return nil, nil
	}
	return snap, nil
}

func (s *snapshotStore) RecentSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	records, err := queryAll(ctx, s.docs, s.database, s.newestFirst(), limit)
	if err != nil {
		return nil, err
	}

	snaps := make([]*models.Snapshot, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		snap, ok := s.toSnapshot(records[i])
		if !ok {
			s.logger.DataGap(common.DataGap{Database: s.database, RecordID: records[i].ID, Reason: "missing date or total"})
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *snapshotStore) SnapshotOnDate(ctx context.Context, date string) (*models.Snapshot, error) {
	q := models.Query{Filter: models.And(models.Equals(s.fields.Date, models.DateValue(date)))}
	records, err := queryAll(ctx, s.docs, s.database, q, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	snap, ok := s.toSnapshot(records[0])
	if !ok {
		// An unreadable row on the same date is still the row to replace.
		return &models.Snapshot{ID: records[0].ID, Date: date}, nil
	}
	return snap, nil
}

func (s *snapshotStore) CreateSnapshot(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error) {
	fields := s.toFields(snap)

	schema, err := s.docs.Schema(ctx, s.database)
	if err != nil {
		s.logger.Warn().Err(err).Str("database", s.database).Msg("Snapshot schema unavailable; writing without title")
	} else if title, ok := schema.TitleField(); ok {
		fields[title] = models.TitleValue("Snapshot " + snap.Date)
	}

	rec, err := s.docs.Create(ctx, s.database, fields)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	out := *snap
	out.ID = rec.ID
	return &out, nil
}

func (s *snapshotStore) UpdateSnapshot(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("update snapshot: missing record id")
	}
	if _, err := s.docs.Update(ctx, snap.ID, s.toFields(snap)); err != nil {
		return nil, fmt.Errorf("update snapshot %s: %w", snap.ID, err)
	}
	out := *snap
	return &out, nil
}

// toFields writes the change fields only when they are defined.
func (s *snapshotStore) toFields(snap *models.Snapshot) models.Fields {
	fields := models.Fields{}
	setIf(fields, s.fields.Date, models.DateValue(snap.Date))
	setIf(fields, s.fields.Total, models.NumberValue(snap.TotalValue))
	if snap.ChangeAbsolute != nil {
		setIf(fields, s.fields.ChangeAbsolute, models.NumberValue(*snap.ChangeAbsolute))
	}
	if snap.ChangePercent != nil {
		setIf(fields, s.fields.ChangePercent, models.NumberValue(*snap.ChangePercent))
	}
	return fields
}

func (s *snapshotStore) toSnapshot(rec *models.Record) (*models.Snapshot, bool) {
	raw, ok := rec.Date(s.fields.Date)
	if !ok {
		return nil, false
	}
	date, ok := common.NormalizeDate(raw)
	if !ok {
		return nil, false
	}
	total, ok := rec.Number(s.fields.Total)
	if !ok {
		return nil, false
	}
	snap := &models.Snapshot{ID: rec.ID, Date: date, TotalValue: total}
	if v, ok := rec.Number(s.fields.ChangeAbsolute); ok {
		snap.ChangeAbsolute = &v
	}
	if v, ok := rec.Number(s.fields.ChangePercent); ok {
		snap.ChangePercent = &v
	}
	return snap, true
}
