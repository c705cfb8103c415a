package storage

import (
	"context"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// Manager implements interfaces.StorageManager over one document store.
type Manager struct {
	docs         interfaces.DocumentStore
	closer       closeFunc
	holdings     *holdingStore
	snapshots    *snapshotStore
	transactions *transactionStore
	assetLog     *assetLogStore
	logger       *common.Logger
}

// NewManager opens the configured backend and builds the typed repositories.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	docs, closer, err := NewDocumentStore(ctx, logger, config)
	if err != nil {
		return nil, err
	}

	m := NewManagerWithStore(docs, logger, config)
	m.closer = closer

	backend := config.Store.Backend
	if backend == "" {
		backend = common.BackendNotion
	}
	logger.Info().
		Str("backend", backend).
		Str("holdings", config.Databases.Holdings).
		Str("snapshots", config.Databases.Snapshots).
		Str("transactions", config.Databases.Transactions).
		Str("asset_log", config.Databases.AssetLog).
		Msg("Storage manager initialized")

	return m, nil
}

// NewManagerWithStore builds the repositories over an existing document store.
// The caller keeps ownership of the store.
func NewManagerWithStore(docs interfaces.DocumentStore, logger *common.Logger, config *common.Config) *Manager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	dbs := config.Databases
	f := config.Fields
	return &Manager{
		docs:         docs,
		closer:       noClose,
		holdings:     newHoldingStore(docs, dbs.Holdings, f.Holdings, logger),
		snapshots:    newSnapshotStore(docs, dbs.Snapshots, f.Snapshots, logger),
		transactions: newTransactionStore(docs, dbs.Transactions, f.Transactions, logger),
		assetLog:     newAssetLogStore(docs, dbs.AssetLog, f.AssetLog, logger),
		logger:       logger,
	}
}

func (m *Manager) HoldingStore() interfaces.HoldingStore {
	return m.holdings
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshots
}

func (m *Manager) TransactionStore() interfaces.TransactionStore {
	return m.transactions
}

func (m *Manager) AssetLogStore() interfaces.AssetLogStore {
	return m.assetLog
}

func (m *Manager) DocumentStore() interfaces.DocumentStore {
	return m.docs
}

func (m *Manager) Close() error {
	return m.closer()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
