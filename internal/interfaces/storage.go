// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// StorageManager exposes the typed repositories over the document store
type StorageManager interface {
	HoldingStore() HoldingStore
	SnapshotStore() SnapshotStore
	TransactionStore() TransactionStore
	AssetLogStore() AssetLogStore

	// DocumentStore returns the underlying backend
	DocumentStore() DocumentStore

	// Lifecycle
	Close() error
}

// HoldingStore reads the holdings database
type HoldingStore interface {
	// ListHoldings returns every valued holding. Rows without a name or with
	// a non-positive quantity are left out.
	ListHoldings(ctx context.Context) ([]*models.Holding, error)
}

// SnapshotStore reads and writes the snapshots database
type SnapshotStore interface {
	// LatestSnapshot returns the snapshot with the greatest date, or nil when none exist
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)

	// RecentSnapshots returns the newest limit snapshots in ascending date order
	RecentSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error)

	// SnapshotOnDate returns the first snapshot recorded for date, or nil
	SnapshotOnDate(ctx context.Context, date string) (*models.Snapshot, error)

	CreateSnapshot(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error)
	UpdateSnapshot(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error)
}

// TransactionStore reads and writes the transactions database
type TransactionStore interface {
	// QueryTransactions drains every page matching the query
	QueryTransactions(ctx context.Context, q models.TransactionQuery) (*models.TransactionSet, error)

	// GetTransaction returns one transaction; fields it lacks are left zero
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// FindByExternalID returns the transaction carrying externalID, or nil
	FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error)

	// TransactionMeta lists the select options of the payment method and type fields
	TransactionMeta(ctx context.Context) (*models.TransactionMeta, error)
}

// AssetLogStore reads and writes the asset log (ledger) database
type AssetLogStore interface {
	// EnsureBalanceField adds the numeric balance field when the schema lacks it
	EnsureBalanceField(ctx context.Context) error

	// ListEntries returns entries dated inside window in ascending date order.
	// A positive limit keeps only the newest limit entries.
	ListEntries(ctx context.Context, window models.DateWindow, limit int) ([]*models.LedgerEntry, error)

	CreateEntry(ctx context.Context, entry *models.LedgerEntry) (*models.LedgerEntry, error)
	UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error
}
