// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// CurrencyConverter converts amounts between currencies using cached spot rates
type CurrencyConverter interface {
	// Rate returns the from→to rate; empty codes mean USD
	Rate(ctx context.Context, from, to string) (float64, error)

	// Convert converts amount from one currency to another
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)

	// ToBase converts amount into the base currency; an empty code means base
	ToBase(ctx context.Context, amount float64, currency string) (float64, error)

	// BaseCurrency returns the configured base currency code
	BaseCurrency() string
}

// PriceResolver fetches unit prices for a set of holdings
type PriceResolver interface {
	Resolve(ctx context.Context, holdings []*models.Holding) (*models.PriceQuotes, error)
}

// ValuationService values the portfolio in the base currency
type ValuationService interface {
	ComputeValuation(ctx context.Context) (*models.PortfolioValuation, error)
}

// SnapshotService records and reads daily valuation snapshots
type SnapshotService interface {
	// RecordSnapshot values the portfolio and persists a snapshot for date
	RecordSnapshot(ctx context.Context, date time.Time) (*models.SnapshotResult, error)

	// Compare values the portfolio against the latest snapshot without writing
	Compare(ctx context.Context) (*models.ValuationComparison, error)

	// ListSnapshots returns recent snapshots ascending by date
	ListSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error)

	// RenderChart draws snapshot totals as a PNG line chart
	RenderChart(snapshots []*models.Snapshot) ([]byte, error)
}

// LedgerService maintains the asset log running balances
type LedgerService interface {
	// Recompute rebuilds asset log rows for a window around a changed
	// transaction, or for the default trailing window
	Recompute(ctx context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error)

	// Sync rebuilds the asset log for a cash or forecast view of a window
	Sync(ctx context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error)

	// ListEntries returns asset log rows
	ListEntries(ctx context.Context, from, to string, limit int) ([]*models.LedgerEntry, error)
}

// TransactionService lists and creates transactions
type TransactionService interface {
	ListTransactions(ctx context.Context, limit int) ([]models.EnrichedTransaction, error)
	CreateTransaction(ctx context.Context, input models.TransactionInput) (*models.Transaction, error)
	TransactionMeta(ctx context.Context) (*models.TransactionMeta, error)
}
