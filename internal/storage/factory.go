// Package storage maps Folio's logical databases onto a pluggable document store.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/clients/notion"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/storage/memdb"
	"github.com/bobmcallan/folio/internal/storage/postgres"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// closeFunc releases a backend's connections.
type closeFunc func() error

func noClose() error { return nil }

// NewDocumentStore creates the document store selected by config.Store.Backend.
// Supported backends: "notion" (default), "surrealdb", "postgres", "memory".
func NewDocumentStore(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.DocumentStore, closeFunc, error) {
	backend := config.Store.Backend
	if backend == "" {
		backend = common.BackendNotion
	}

	switch backend {
	case common.BackendNotion:
		nc := config.Store.Notion
		client := notion.NewClient(nc.Token,
			notion.WithBaseURL(nc.BaseURL),
			notion.WithVersion(nc.Version),
			notion.WithRateLimit(nc.RateLimit),
			notion.WithTimeout(nc.GetTimeout()),
			notion.WithLogger(logger),
		)
		return client, noClose, nil

	case common.BackendSurrealDB:
		store, err := surrealdb.Open(ctx, config.Store.SurrealDB, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SurrealDB store: %w", err)
		}
		return store, store.Close, nil

	case common.BackendPostgres:
		store, err := postgres.Open(ctx, config.Store.Postgres.URL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open Postgres store: %w", err)
		}
		return store, store.Close, nil

	case common.BackendMemory:
		return memdb.NewStore(logger), noClose, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend: %s (supported: notion, surrealdb, postgres, memory)", common.ErrConfiguration, backend)
	}
}
