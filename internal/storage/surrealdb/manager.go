// Package surrealdb implements a DocumentStore backed by SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

const (
	documentTable = "document"
	schemaTable   = "document_schema"
)

// Store implements interfaces.DocumentStore using SurrealDB. Every logical
// database lives in one SCHEMALESS table, discriminated by the database field.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time

	// schemaMu serialises read-modify-write of schema records from this process
	schemaMu sync.Mutex
}

var _ interfaces.DocumentStore = (*Store)(nil)

// Connect opens a SurrealDB connection, signs in and selects the namespace and database.
func Connect(ctx context.Context, cfg common.SurrealDBConfig) (*surrealdb.DB, error) {
	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}
	return db, nil
}

// NewStore defines the document tables on db and returns a store using it.
func NewStore(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Store, error) {
	// SurrealDB v3 errors on querying non-existent tables
	statements := []string{
		fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", documentTable),
		fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", schemaTable),
		fmt.Sprintf("DEFINE INDEX IF NOT EXISTS document_database ON TABLE %s FIELDS database", documentTable),
	}
	for _, sql := range statements {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to run %q: %w", sql, err)
		}
	}

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Open connects using cfg and returns a ready store.
func Open(ctx context.Context, cfg common.SurrealDBConfig, logger *common.Logger) (*Store, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB document store initialized")
	return s, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close(context.Background())
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
