// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// DocumentStore is the external page/database service records live in.
// Notion is the production backend; SurrealDB, PostgreSQL and an in-memory store
// implement the same contract.
type DocumentStore interface {
	// Query returns one page of records of a database. An empty NextCursor
	// in the result means the last page was reached.
	Query(ctx context.Context, database string, q models.Query) (*models.QueryPage, error)

	// Retrieve returns a single record by id
	Retrieve(ctx context.Context, recordID string) (*models.Record, error)

	// Create adds a record to a database
	Create(ctx context.Context, database string, fields models.Fields) (*models.Record, error)

	// Update overwrites the given fields of an existing record
	Update(ctx context.Context, recordID string, fields models.Fields) (*models.Record, error)

	// Schema returns the field definitions of a database
	Schema(ctx context.Context, database string) (*models.Schema, error)

	// AddField declares a new field on a database
	AddField(ctx context.Context, database, name string, kind models.FieldKind) error
}

// MarketPriceClient quotes listed securities (Yahoo Finance)
type MarketPriceClient interface {
	// GetPrices returns the latest price per symbol in the listing currency.
	// Symbols without a usable price are omitted.
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// CryptoPriceClient quotes crypto assets (CoinGecko)
type CryptoPriceClient interface {
	// GetPrices returns the price per asset id in vsCurrency.
	GetPrices(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error)
}

// FXClient provides spot exchange rates
type FXClient interface {
	// GetRate returns how many units of to one unit of from buys
	GetRate(ctx context.Context, from, to string) (float64, error)
}
