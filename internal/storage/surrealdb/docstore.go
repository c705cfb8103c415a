package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

const documentSelectFields = "record_id, database, fields, created_at, updated_at"

// documentRow is the stored shape of a record
type documentRow struct {
	RecordID  string                  `json:"record_id"`
	Database  string                  `json:"database"`
	Fields    map[string]models.Value `json:"fields"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func (r *documentRow) toRecord() *models.Record {
	rec := &models.Record{
		ID:        r.RecordID,
		Database:  r.Database,
		Fields:    make(models.Fields, len(r.Fields)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for k, v := range r.Fields {
		rec.Fields[k] = v
	}
	return rec
}

// schemaRow is the stored shape of a database schema
type schemaRow struct {
	Database string                        `json:"database"`
	Fields   map[string]models.FieldSchema `json:"fields"`
}

// Query loads every record of the database and evaluates the filter, sort and
// page in process. The cursor is an offset into the sorted result.
func (s *Store) Query(ctx context.Context, database string, q models.Query) (*models.QueryPage, error) {
	sql := "SELECT " + documentSelectFields + " FROM " + documentTable +
		" WHERE database = $database ORDER BY created_at ASC, record_id ASC"
	vars := map[string]any{"database": database}

	results, err := surrealdb.Query[[]documentRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", common.ErrUpstream, database, err)
	}

	var records []*models.Record
	if results != nil && len(*results) > 0 {
		rows := (*results)[0].Result
		records = make([]*models.Record, 0, len(rows))
		for i := range rows {
			records = append(records, rows[i].toRecord())
		}
	}
	return models.PageRecords(records, q)
}

func (s *Store) get(ctx context.Context, recordID string) (*documentRow, error) {
	sql := "SELECT " + documentSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(documentTable, recordID)}

	results, err := surrealdb.Query[[]documentRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: retrieve %s: %v", common.ErrUpstream, recordID, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *Store) put(ctx context.Context, row *documentRow) error {
	sql := "UPSERT $rid CONTENT $content"
	vars := map[string]any{
		"rid":     surrealmodels.NewRecordID(documentTable, row.RecordID),
		"content": row,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrUpstream, row.RecordID, err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, recordID string) (*models.Record, error) {
	row, err := s.get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	return row.toRecord(), nil
}

func (s *Store) Create(ctx context.Context, database string, fields models.Fields) (*models.Record, error) {
	now := s.now()
	row := &documentRow{
		RecordID:  uuid.New().String(),
		Database:  database,
		Fields:    make(map[string]models.Value, len(fields)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range fields {
		row.Fields[k] = v
	}
	if err := s.put(ctx, row); err != nil {
		return nil, err
	}
	if err := s.observe(ctx, database, fields); err != nil {
		s.logger.Warn().Err(err).Str("database", database).Msg("Failed to record schema fields")
	}
	return row.toRecord(), nil
}

func (s *Store) Update(ctx context.Context, recordID string, fields models.Fields) (*models.Record, error) {
	row, err := s.get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	if row.Fields == nil {
		row.Fields = map[string]models.Value{}
	}
	for k, v := range fields {
		row.Fields[k] = v
	}
	row.UpdatedAt = s.now()
	if err := s.put(ctx, row); err != nil {
		return nil, err
	}
	if err := s.observe(ctx, row.Database, fields); err != nil {
		s.logger.Warn().Err(err).Str("database", row.Database).Msg("Failed to record schema fields")
	}
	return row.toRecord(), nil
}

func (s *Store) loadSchema(ctx context.Context, database string) (*models.Schema, error) {
	sql := "SELECT database, fields FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(schemaTable, database)}

	results, err := surrealdb.Query[[]schemaRow](ctx, s.db, sql, vars)
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("%w: schema %s: %v", common.ErrUpstream, database, err)
	}
	schema := &models.Schema{Database: database, Fields: map[string]models.FieldSchema{}}
	if err == nil && results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		for k, v := range (*results)[0].Result[0].Fields {
			schema.Fields[k] = v
		}
	}
	return schema, nil
}

func (s *Store) saveSchema(ctx context.Context, schema *models.Schema) error {
	sql := "UPSERT $rid SET database = $database, fields = $fields"
	vars := map[string]any{
		"rid":      surrealmodels.NewRecordID(schemaTable, schema.Database),
		"database": schema.Database,
		"fields":   schema.Fields,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("%w: save schema %s: %v", common.ErrUpstream, schema.Database, err)
	}
	return nil
}

// observe folds written fields into the stored schema
func (s *Store) observe(ctx context.Context, database string, fields models.Fields) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	schema, err := s.loadSchema(ctx, database)
	if err != nil {
		return err
	}
	changed := false
	for name, v := range fields {
		fs, ok := schema.Fields[name]
		if !ok || (v.Kind == models.FieldSelect && v.Text != "" && !hasOption(fs.Options, v.Text)) {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	schema.Observe(fields)
	return s.saveSchema(ctx, schema)
}

func hasOption(opts []string, name string) bool {
	for _, o := range opts {
		if o == name {
			return true
		}
	}
	return false
}

func (s *Store) Schema(ctx context.Context, database string) (*models.Schema, error) {
	return s.loadSchema(ctx, database)
}

func (s *Store) AddField(ctx context.Context, database, name string, kind models.FieldKind) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	schema, err := s.loadSchema(ctx, database)
	if err != nil {
		return err
	}
	if schema.HasField(name) {
		return nil
	}
	schema.Fields[name] = models.FieldSchema{Kind: kind}
	if err := s.saveSchema(ctx, schema); err != nil {
		return err
	}
	s.logger.Info().Str("database", database).Str("field", name).Str("kind", string(kind)).Msg("Added field")
	return nil
}
