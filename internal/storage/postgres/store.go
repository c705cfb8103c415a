// Package postgres implements a DocumentStore backed by PostgreSQL JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const migration = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	seq        BIGSERIAL,
	database   TEXT NOT NULL,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_database_seq_idx ON documents (database, seq);
CREATE TABLE IF NOT EXISTS document_schemas (
	database TEXT PRIMARY KEY,
	fields   JSONB NOT NULL DEFAULT '{}'::jsonb
);`

// Store implements interfaces.DocumentStore on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.DocumentStore = (*Store)(nil)

// Open connects to dbURL, verifies connectivity and applies the table migration.
func Open(ctx context.Context, dbURL string, logger *common.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres url: %v", common.ErrConfiguration, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, migration); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate document tables: %w", err)
	}

	logger.Info().Str("host", config.ConnConfig.Host).Str("database", config.ConnConfig.Database).Msg("Postgres document store initialized")
	return &Store{pool: pool, logger: logger, now: time.Now}, nil
}

// Close releases the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrUpstream, op, err)
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec models.Record
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.Database, &raw, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Fields = models.Fields{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// Query loads the database's rows in insertion order and evaluates the query in process.
func (s *Store) Query(ctx context.Context, database string, q models.Query) (*models.QueryPage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, database, fields, created_at, updated_at FROM documents WHERE database = $1 ORDER BY seq`,
		database)
	if err != nil {
		return nil, upstream("query "+database, err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, upstream("scan "+database, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("query "+database, err)
	}
	return models.PageRecords(records, q)
}

func (s *Store) Retrieve(ctx context.Context, recordID string) (*models.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, database, fields, created_at, updated_at FROM documents WHERE id = $1`, recordID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("retrieve "+recordID, err)
	}
	return rec, nil
}

func (s *Store) Create(ctx context.Context, database string, fields models.Fields) (*models.Record, error) {
	if fields == nil {
		fields = models.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	now := s.now().UTC()
	id := uuid.New().String()

	var rec *models.Record
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO documents (id, database, fields, created_at, updated_at)
			 VALUES ($1, $2, $3::jsonb, $4, $4)
			 RETURNING id, database, fields, created_at, updated_at`,
			id, database, string(data), now)
		var err error
		if rec, err = scanRecord(row); err != nil {
			return err
		}
		return observe(ctx, tx, database, fields)
	})
	if err != nil {
		return nil, upstream("create in "+database, err)
	}
	return rec, nil
}

func (s *Store) Update(ctx context.Context, recordID string, fields models.Fields) (*models.Record, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	var rec *models.Record
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// jsonb || merges top-level keys, which is field-level overwrite
		row := tx.QueryRow(ctx,
			`UPDATE documents SET fields = fields || $2::jsonb, updated_at = $3 WHERE id = $1
			 RETURNING id, database, fields, created_at, updated_at`,
			recordID, string(data), s.now().UTC())
		var err error
		if rec, err = scanRecord(row); err != nil {
			return err
		}
		return observe(ctx, tx, rec.Database, fields)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("update "+recordID, err)
	}
	return rec, nil
}

func loadSchema(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, database string, lock bool) (*models.Schema, error) {
	sql := `SELECT fields FROM document_schemas WHERE database = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	schema := &models.Schema{Database: database, Fields: map[string]models.FieldSchema{}}
	var raw []byte
	err := q.QueryRow(ctx, sql, database).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &schema.Fields); err != nil {
		return nil, fmt.Errorf("decode schema of %s: %w", database, err)
	}
	return schema, nil
}

func saveSchema(ctx context.Context, tx pgx.Tx, schema *models.Schema) error {
	data, err := json.Marshal(schema.Fields)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO document_schemas (database, fields) VALUES ($1, $2::jsonb)
		 ON CONFLICT (database) DO UPDATE SET fields = EXCLUDED.fields`,
		schema.Database, string(data))
	return err
}

// observe folds written fields into the stored schema inside tx
func observe(ctx context.Context, tx pgx.Tx, database string, fields models.Fields) error {
	schema, err := loadSchema(ctx, tx, database, true)
	if err != nil {
		return err
	}
	schema.Observe(fields)
	return saveSchema(ctx, tx, schema)
}

func (s *Store) Schema(ctx context.Context, database string) (*models.Schema, error) {
	schema, err := loadSchema(ctx, s.pool, database, false)
	if err != nil {
		return nil, upstream("schema "+database, err)
	}
	return schema, nil
}

func (s *Store) AddField(ctx context.Context, database, name string, kind models.FieldKind) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		schema, err := loadSchema(ctx, tx, database, true)
		if err != nil {
			return err
		}
		if schema.HasField(name) {
			return nil
		}
		schema.Fields[name] = models.FieldSchema{Kind: kind}
		return saveSchema(ctx, tx, schema)
	})
	if err != nil {
		return upstream("add field "+name, err)
	}
	return nil
}
