package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/storage"
	"github.com/bobmcallan/folio/internal/storage/memdb"
)

type fixture struct {
	svc  *Service
	docs *memdb.Store
	mgr  *storage.Manager
}

func newFixture(t *testing.T, aggregateBy string) *fixture {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Store.Backend = common.BackendMemory
	cfg.Databases.Transactions = "tx"
	cfg.Databases.AssetLog = "log"
	cfg.Ledger.AggregateBy = aggregateBy

	docs := memdb.NewStore(nil)
	mgr := storage.NewManagerWithStore(docs, common.NewSilentLogger(), cfg)
	svc, err := NewService(mgr.TransactionStore(), mgr.AssetLogStore(), cfg.Ledger, common.NewSilentLogger())
	require.NoError(t, err)

	fixed := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	svc.windows.now = func() time.Time { return fixed }
	svc.syncWindows.now = func() time.Time { return fixed }
	return &fixture{svc: svc, docs: docs, mgr: mgr}
}

type tx struct {
	date      string
	amount    float64
	verified  bool
	confirmed bool
	asset     string
	method    string
}

func (f *fixture) add(t *testing.T, x tx) string {
	t.Helper()
	fields := models.Fields{
		"Date":             models.DateValue(x.date),
		"Amount":           models.NumberValue(x.amount),
		"Verified":         models.CheckboxValue(x.verified),
		"Amount Confirmed": models.CheckboxValue(x.confirmed),
	}
	if x.asset != "" {
		fields["Asset Type"] = models.SelectValue(x.asset)
	}
	if x.method != "" {
		fields["Payment Method"] = models.SelectValue(x.method)
	}
	rec, err := f.docs.Create(context.Background(), "tx", fields)
	require.NoError(t, err)
	return rec.ID
}

func (f *fixture) entries(t *testing.T) []*models.LedgerEntry {
	t.Helper()
	out, err := f.mgr.AssetLogStore().ListEntries(context.Background(), models.DateWindow{}, 0)
	require.NoError(t, err)
	return out
}

func TestReconcile_RunningBalance(t *testing.T) {
	deltas := models.DailyDeltas{}
	deltas.Add(models.NaturalKey{Date: "2025-01-03", Group: "Cash"}, 0.3)
	deltas.Add(models.NaturalKey{Date: "2025-01-01", Group: "Cash"}, 0.1)
	deltas.Add(models.NaturalKey{Date: "2025-01-02", Group: "Cash"}, 0.2)
	deltas.Add(models.NaturalKey{Date: "2025-01-01", Group: "Bank"}, -5)

	entries := Reconcile(deltas, models.Balances{"Cash": decimal.NewFromInt(100)})
	require.Len(t, entries, 4)

	assert.Equal(t, models.LedgerEntry{Date: "2025-01-01", Group: "Bank", Delta: -5, Balance: -5}, entries[0])
	assert.Equal(t, 100.1, entries[1].Balance)
	assert.Equal(t, 100.3, entries[2].Balance)
	assert.Equal(t, 100.6, entries[3].Balance)
	assert.Equal(t, "2025-01-03", entries[3].Date)
}

func TestReconcile_NoDeltasNoEntries(t *testing.T) {
	entries := Reconcile(models.DailyDeltas{}, models.Balances{"Cash": decimal.NewFromInt(10)})
	assert.Empty(t, entries)
}

func TestRecompute_EndToEndTotal(t *testing.T) {
	f := newFixture(t, "total")
	f.add(t, tx{date: "2024-12-01", amount: 1000, verified: true})
	f.add(t, tx{date: "2025-01-01", amount: -50, verified: true})
	f.add(t, tx{date: "2025-01-02", amount: 200, verified: true})

	res, err := f.svc.Recompute(context.Background(), models.RecomputeRequest{From: "2025-01-01", To: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", res.WindowFrom)
	assert.Equal(t, 2, res.EntriesWritten)
	assert.Equal(t, 2, res.Created)

	got := f.entries(t)
	require.Len(t, got, 2)
	assert.Equal(t, "Total", got[0].Group)
	assert.Equal(t, -50.0, got[0].Delta)
	assert.Equal(t, 950.0, got[0].Balance)
	assert.Equal(t, 200.0, got[1].Delta)
	assert.Equal(t, 1150.0, got[1].Balance)
}

func TestRecompute_Idempotent(t *testing.T) {
	f := newFixture(t, "asset_type")
	f.add(t, tx{date: "2025-01-05", amount: 10, verified: true, asset: "Cash"})
	f.add(t, tx{date: "2025-01-05", amount: 5, confirmed: true})
	req := models.RecomputeRequest{From: "2025-01-01", To: "2025-01-10"}

	first, err := f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 2, f.docs.Len("log"))

	groups := map[string]bool{}
	for _, e := range f.entries(t) {
		groups[e.Group] = true
	}
	assert.True(t, groups["Unknown"], "missing asset type groups as Unknown")
}

func TestRecompute_UpdatesChangedAmounts(t *testing.T) {
	f := newFixture(t, "total")
	id := f.add(t, tx{date: "2025-01-05", amount: 10, verified: true})
	req := models.RecomputeRequest{From: "2025-01-01", To: "2025-01-10"}
	_, err := f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)

	_, err = f.docs.Update(context.Background(), id, models.Fields{"Amount": models.NumberValue(25)})
	require.NoError(t, err)
	_, err = f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)

	got := f.entries(t)
	require.Len(t, got, 1)
	assert.Equal(t, 25.0, got[0].Balance)
}

func TestSync_ConfirmationModes(t *testing.T) {
	f := newFixture(t, "total")
	f.add(t, tx{date: "2025-01-10", amount: 100, verified: true})
	f.add(t, tx{date: "2025-01-10", amount: 7, confirmed: true})
	f.add(t, tx{date: "2025-01-10", amount: 1000})

	res, err := f.svc.Sync(context.Background(), models.RecomputeRequest{FlagMode: models.FlagCash})
	require.NoError(t, err)
	assert.Equal(t, models.FlagCash, res.FlagMode)
	assert.Equal(t, "2024-10-17", res.WindowFrom, "default sync window is 90 days")
	got := f.entries(t)
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Delta)

	_, err = f.svc.Sync(context.Background(), models.RecomputeRequest{FlagMode: models.FlagForecast})
	require.NoError(t, err)
	got = f.entries(t)
	require.Len(t, got, 1)
	assert.Equal(t, 7.0, got[0].Delta)
}

func TestSync_InvalidMode(t *testing.T) {
	f := newFixture(t, "total")
	_, err := f.svc.Sync(context.Background(), models.RecomputeRequest{FlagMode: "maybe"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRecompute_FocusedOnChangedRecord(t *testing.T) {
	f := newFixture(t, "payment_method")
	id := f.add(t, tx{date: "2024-06-15", amount: 40, verified: true, asset: "Cash", method: "Card"})
	f.add(t, tx{date: "2024-03-01", amount: 60, verified: true, method: "Card"})

	res, err := f.svc.Recompute(context.Background(), models.RecomputeRequest{RecordID: id})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-16", res.WindowFrom)
	assert.Equal(t, "2024-07-15", res.WindowTo)
	assert.Equal(t, "Cash", res.FocusGroup)
	assert.Equal(t, models.GroupByPaymentMethod, res.GroupBy)

	got := f.entries(t)
	require.Len(t, got, 1)
	assert.Equal(t, "Card", got[0].Group)
	assert.Equal(t, 100.0, got[0].Balance, "starting balance includes earlier transactions")
}

func TestRecompute_UnknownRecordFallsBackToDefaultWindow(t *testing.T) {
	f := newFixture(t, "total")
	res, err := f.svc.Recompute(context.Background(), models.RecomputeRequest{RecordID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-19", res.WindowFrom)
	assert.Equal(t, "2025-01-15", res.WindowTo)
}

func TestRecompute_InvalidWindow(t *testing.T) {
	f := newFixture(t, "total")
	_, err := f.svc.Recompute(context.Background(), models.RecomputeRequest{From: "2025-02-01", To: "2025-01-01"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.Recompute(context.Background(), models.RecomputeRequest{GroupBy: "colour"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewService_InvalidAggregateBy(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Ledger.AggregateBy = "weekly"
	_, err := NewService(nil, nil, cfg.Ledger, common.NewSilentLogger())
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestListEntries_Limits(t *testing.T) {
	f := newFixture(t, "total")
	for _, d := range []string{"2025-01-01", "2025-01-02", "2025-01-03"} {
		f.add(t, tx{date: d, amount: 1, verified: true})
	}
	_, err := f.svc.Recompute(context.Background(), models.RecomputeRequest{From: "2025-01-01", To: "2025-01-31"})
	require.NoError(t, err)

	got, err := f.svc.ListEntries(context.Background(), "", "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-02", got[0].Date)

	got, err = f.svc.ListEntries(context.Background(), "2025-01-02", "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.ListEntries(context.Background(), "yesterday", "", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWindowPolicy(t *testing.T) {
	p := NewWindowPolicy(30, 180)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC) }

	assert.Equal(t, models.DateWindow{From: "2025-01-30", To: "2025-03-31"}, p.Resolve("2025-03-01"))
	assert.Equal(t, models.DateWindow{From: "2024-09-02", To: "2025-03-01"}, p.Resolve(""))

	w, err := Override(p.Resolve(""), "2025-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", w.From)
	assert.Equal(t, "2025-03-01", w.To)
}

func TestLeases_OverlappingSerialize(t *testing.T) {
	leases := NewLeases()
	ctx := context.Background()
	a := models.DateWindow{From: "2025-01-01", To: "2025-01-31"}
	b := models.DateWindow{From: "2025-01-15", To: "2025-02-15"}
	c := models.DateWindow{From: "2025-03-01", To: "2025-03-31"}

	release, err := leases.Acquire(ctx, a, models.GroupByTotal)
	require.NoError(t, err)

	// disjoint window and other grouping do not wait
	r2, err := leases.Acquire(ctx, c, models.GroupByTotal)
	require.NoError(t, err)
	r3, err := leases.Acquire(ctx, a, models.GroupByAssetType)
	require.NoError(t, err)
	assert.Equal(t, 3, leases.Held())
	r2()
	r3()

	var acquired atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := leases.Acquire(ctx, b, models.GroupByTotal)
		if assert.NoError(t, err) {
			acquired.Store(true)
			r()
		}
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, acquired.Load(), "overlapping window must wait")
	release()
	wg.Wait()
	assert.True(t, acquired.Load())
	assert.Equal(t, 0, leases.Held())
}

func TestLeases_ContextCancelled(t *testing.T) {
	leases := NewLeases()
	w := models.DateWindow{From: "2025-01-01", To: "2025-01-31"}
	release, err := leases.Acquire(context.Background(), w, models.GroupByTotal)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = leases.Acquire(ctx, w, models.GroupByTotal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecompute_OffsetTimestampAtWindowEdge(t *testing.T) {
	f := newFixture(t, "total")
	f.add(t, tx{date: "2025-01-15T22:00:00-05:00", amount: -50, verified: true})
	req := models.RecomputeRequest{From: "2025-01-01", To: "2025-01-15"}

	first, err := f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := f.svc.Recompute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 1, f.docs.Len("log"))

	got := f.entries(t)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-15", got[0].Date)
	assert.Equal(t, -50.0, got[0].Balance)
}

// looseStore returns its transactions whatever the query asks for.
type looseStore struct {
	txs []*models.Transaction
}

func (s *looseStore) QueryTransactions(ctx context.Context, q models.TransactionQuery) (*models.TransactionSet, error) {
	return &models.TransactionSet{Transactions: s.txs}, nil
}

func (s *looseStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return nil, common.ErrNotFound
}

func (s *looseStore) FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	return nil, nil
}

func (s *looseStore) CreateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	return t, nil
}

func (s *looseStore) TransactionMeta(ctx context.Context) (*models.TransactionMeta, error) {
	return &models.TransactionMeta{}, nil
}

func TestAggregate_DropsRowsOutsideWindowOrMode(t *testing.T) {
	store := &looseStore{txs: []*models.Transaction{
		{Date: "2024-12-20", Amount: 1000, Verified: true},
		{Date: "2025-01-05", Amount: 10, Verified: true},
		{Date: "2025-01-05", Amount: 99, AmountConfirmed: true},
		{Date: "2025-01-16", Amount: 7, Verified: true},
		{Date: "", Amount: 3, Verified: true},
	}}
	agg := NewAggregator(store)
	window := models.DateWindow{From: "2025-01-01", To: "2025-01-15"}

	deltas, _, err := agg.Aggregate(context.Background(), window, models.GroupByTotal, models.FlagCash)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "10", deltas[models.NaturalKey{Date: "2025-01-05", Group: "Total"}].String())

	balances, _, err := agg.StartingBalances(context.Background(), window.From, models.GroupByTotal, models.FlagCash)
	require.NoError(t, err)
	assert.Equal(t, "1000", balances["Total"].String())
}
