// Package memdb implements an in-process DocumentStore for development and tests.
package memdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Store keeps records and schemas in memory. Records are returned as copies so
// callers can never mutate stored state.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	order   []string // insertion order of record ids
	schemas map[string]*models.Schema
	now     func() time.Time
	logger  *common.Logger
}

var _ interfaces.DocumentStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore(logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{
		records: make(map[string]*models.Record),
		schemas: make(map[string]*models.Schema),
		now:     time.Now,
		logger:  logger,
	}
}

func (s *Store) schemaLocked(database string) *models.Schema {
	sc, ok := s.schemas[database]
	if !ok {
		sc = &models.Schema{Database: database, Fields: make(map[string]models.FieldSchema)}
		s.schemas[database] = sc
	}
	return sc
}

// DeclareField adds a field to a database schema without writing any record.
// Seeding helpers use it to mirror a remote schema.
func (s *Store) DeclareField(database, name string, kind models.FieldKind, options ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.schemaLocked(database)
	sc.Fields[name] = models.FieldSchema{Kind: kind, Options: options}
}

func (s *Store) Query(ctx context.Context, database string, q models.Query) (*models.QueryPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	records := make([]*models.Record, 0)
	for _, id := range s.order {
		if r := s.records[id]; r.Database == database {
			records = append(records, r.Clone())
		}
	}
	s.mu.RUnlock()

	return models.PageRecords(records, q)
}

func (s *Store) Retrieve(ctx context.Context, recordID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) Create(ctx context.Context, database string, fields models.Fields) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	r := &models.Record{
		ID:        uuid.New().String(),
		Database:  database,
		Fields:    make(models.Fields, len(fields)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range fields {
		r.Fields[k] = v
	}
	r = r.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	s.order = append(s.order, r.ID)
	s.schemaLocked(database).Observe(fields)
	return r.Clone(), nil
}

func (s *Store) Update(ctx context.Context, recordID string, fields models.Fields) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	patch := (&models.Record{Fields: fields}).Clone()
	for k, v := range patch.Fields {
		r.Fields[k] = v
	}
	r.UpdatedAt = s.now()
	s.schemaLocked(r.Database).Observe(fields)
	return r.Clone(), nil
}

func (s *Store) Schema(ctx context.Context, database string) (*models.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.schemaLocked(database)
	out := &models.Schema{Database: database, Fields: make(map[string]models.FieldSchema, len(sc.Fields))}
	for name, f := range sc.Fields {
		f.Options = append([]string(nil), f.Options...)
		out.Fields[name] = f
	}
	return out, nil
}

func (s *Store) AddField(ctx context.Context, database, name string, kind models.FieldKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.schemaLocked(database)
	if _, ok := sc.Fields[name]; !ok {
		sc.Fields[name] = models.FieldSchema{Kind: kind}
		s.logger.Debug().Str("database", database).Str("field", name).Msg("Declared field")
	}
	return nil
}

// Len returns the number of records in a database
func (s *Store) Len(database string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.Database == database {
			n++
		}
	}
	return n
}
