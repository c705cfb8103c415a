package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/snapshot"
)

// --- fakes ---

type fakeSnapshots struct {
	comparison *models.ValuationComparison
	snaps      []*models.Snapshot
	png        []byte
	err        error
	chartErr   error
	recorded   []time.Time
	listLimit  int
}

func (f *fakeSnapshots) RecordSnapshot(_ context.Context, date time.Time) (*models.SnapshotResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = append(f.recorded, date)
	return &models.SnapshotResult{Snapshot: &models.Snapshot{ID: "snap-1", Date: common.FormatDate(date), TotalValue: 1234.5}}, nil
}

func (f *fakeSnapshots) Compare(context.Context) (*models.ValuationComparison, error) {
	return f.comparison, f.err
}

func (f *fakeSnapshots) ListSnapshots(_ context.Context, limit int) ([]*models.Snapshot, error) {
	f.listLimit = limit
	return f.snaps, f.err
}

func (f *fakeSnapshots) RenderChart([]*models.Snapshot) ([]byte, error) {
	return f.png, f.chartErr
}

type fakeLedger struct {
	recomputes []models.RecomputeRequest
	syncs      []models.RecomputeRequest
	entries    []*models.LedgerEntry
	listArgs   [3]string
	err        error
}

func (f *fakeLedger) result(req models.RecomputeRequest) *models.RecomputeResult {
	return &models.RecomputeResult{WindowFrom: "2024-12-16", WindowTo: "2025-02-14", GroupBy: models.GroupByAssetType, FlagMode: req.FlagMode, EntriesWritten: 3, Created: 2, Updated: 1}
}

func (f *fakeLedger) Recompute(_ context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error) {
	f.recomputes = append(f.recomputes, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result(req), nil
}

func (f *fakeLedger) Sync(_ context.Context, req models.RecomputeRequest) (*models.RecomputeResult, error) {
	f.syncs = append(f.syncs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result(req), nil
}

func (f *fakeLedger) ListEntries(_ context.Context, from, to string, limit int) ([]*models.LedgerEntry, error) {
	f.listArgs = [3]string{from, to, fmt.Sprint(limit)}
	return f.entries, f.err
}

type fakeTransactions struct {
	items   []models.EnrichedTransaction
	created []models.TransactionInput
	meta    *models.TransactionMeta
	err     error
	limit   int
}

func (f *fakeTransactions) ListTransactions(_ context.Context, limit int) ([]models.EnrichedTransaction, error) {
	f.limit = limit
	return f.items, f.err
}

func (f *fakeTransactions) CreateTransaction(_ context.Context, input models.TransactionInput) (*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, input)
	return &models.Transaction{ID: "tx-1", Title: input.Title, Date: input.Date, Amount: *input.Amount, ExternalID: "ext-1"}, nil
}

func (f *fakeTransactions) TransactionMeta(context.Context) (*models.TransactionMeta, error) {
	return f.meta, f.err
}

// --- harness ---

type testEnv struct {
	snapshots    *fakeSnapshots
	ledger       *fakeLedger
	transactions *fakeTransactions
	config       *common.Config
	server       *Server
}

func configuredConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Store.Backend = common.BackendMemory
	cfg.Databases = common.DatabasesConfig{
		Holdings:     "holdings",
		Snapshots:    "snapshots",
		Transactions: "transactions",
		AssetLog:     "asset-log",
	}
	return cfg
}

func newTestEnv(t *testing.T, cfg *common.Config) *testEnv {
	t.Helper()
	env := &testEnv{
		snapshots:    &fakeSnapshots{},
		ledger:       &fakeLedger{},
		transactions: &fakeTransactions{},
		config:       cfg,
	}
	a := &app.App{
		Config:             cfg,
		Logger:             common.NewSilentLogger(),
		SnapshotService:    env.snapshots,
		LedgerService:      env.ledger,
		TransactionService: env.transactions,
		StartupTime:        time.Now(),
	}
	env.server = NewServer(a)
	env.server.now = func() time.Time { return time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC) }
	return env
}

func (e *testEnv) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// --- system ---

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	rr = env.do(http.MethodPost, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = env.do(http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, common.GetVersion(), decodeBody(t, rr)["version"])
}

func TestConfigEndpoint_OmitsSecrets(t *testing.T) {
	cfg := configuredConfig()
	cfg.BaseCurrency = "JPY"
	cfg.Auth.WriteSecret = "hidden"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodGet, "/api/config", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "JPY", body["base_currency"])
	assert.NotContains(t, rr.Body.String(), "hidden")
}

// --- valuation ---

func TestCompute_ConfigurationErrorBeforeServiceCall(t *testing.T) {
	cfg := common.NewDefaultConfig() // notion backend, no token, no database ids
	env := newTestEnv(t, cfg)
	env.snapshots.err = fmt.Errorf("must not be called")

	rr := env.do(http.MethodGet, "/api/compute", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "configuration", body["code"])
	assert.Contains(t, body["error"], "NOTION_TOKEN")
}

func TestCompute_Success(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	change := 10.5
	env.snapshots.comparison = &models.ValuationComparison{
		Valuation:      &models.PortfolioValuation{BaseCurrency: "USD", TotalValue: 1010.5},
		LastSnapshot:   &models.Snapshot{Date: "2025-01-14", TotalValue: 1000},
		ChangeAbsolute: &change,
	}

	rr := env.do(http.MethodGet, "/api/compute", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, 10.5, body["change_absolute"])
	assert.Nil(t, body["change_percent"])
	assert.Equal(t, 1010.5, body["valuation"].(map[string]interface{})["total_value"])
}

func TestCompute_UpstreamMapsTo502(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.snapshots.err = fmt.Errorf("yahoo quote: %w", common.ErrUpstream)

	rr := env.do(http.MethodGet, "/api/compute", "", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "upstream", decodeBody(t, rr)["code"])
}

func TestCompute_RateUnavailableMapsTo502(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.snapshots.err = fmt.Errorf("EUR->USD: %w", common.ErrRateUnavailable)

	rr := env.do(http.MethodGet, "/api/compute", "", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "rate_unavailable", decodeBody(t, rr)["code"])
}

func TestSnapshots_ListUsesCappedLimit(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.snapshots.snaps = []*models.Snapshot{{Date: "2025-01-14", TotalValue: 1}, {Date: "2025-01-15", TotalValue: 2}}

	rr := env.do(http.MethodGet, "/api/snapshots?limit=9999", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, snapshot.MaxListLimit, env.snapshots.listLimit)
	assert.Equal(t, float64(2), decodeBody(t, rr)["count"])

	env.do(http.MethodGet, "/api/snapshots?limit=abc", "", nil)
	assert.Equal(t, snapshot.DefaultListLimit, env.snapshots.listLimit)
}

func TestSnapshots_RecordRequiresCronSecret(t *testing.T) {
	cfg := configuredConfig()
	cfg.Auth.CronSecret = "cron"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/snapshots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, env.snapshots.recorded)

	rr = env.do(http.MethodPost, "/api/snapshots", "", map[string]string{"Authorization": "Bearer cron"})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "2025-01-15", body["snapshot"].(map[string]interface{})["date"])
	require.Len(t, env.snapshots.recorded, 1)
}

func TestCronSnapshot_OpenWhenSecretUnset(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodGet, "/api/cron/snapshot", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, env.snapshots.recorded, 1)
}

func TestSnapshotChart(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.snapshots.png = []byte("\x89PNG fake")

	rr := env.do(http.MethodGet, "/api/snapshots/chart.png", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, env.snapshots.png, rr.Body.Bytes())

	env.snapshots.chartErr = snapshot.ErrTooFewSnapshots
	rr = env.do(http.MethodGet, "/api/snapshots/chart.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- asset log ---

func TestAssetLogList_PassesWindow(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.ledger.entries = []*models.LedgerEntry{{Date: "2025-01-02", Group: "Cash", Delta: 5, Balance: 5}}

	rr := env.do(http.MethodGet, "/api/asset-log?from=2025-01-01&to=2025-01-31&limit=5000", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, [3]string{"2025-01-01", "2025-01-31", "2000"}, env.ledger.listArgs)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])
}

func TestAssetLogList_InvalidDateIs400(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.ledger.err = fmt.Errorf("%w: bad from date", common.ErrInvalidInput)

	rr := env.do(http.MethodGet, "/api/asset-log?from=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecompute_BodyAndQueryMerge(t *testing.T) {
	cfg := configuredConfig()
	cfg.Auth.WriteSecret = "w"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/asset-log/recompute?group_by=total", `{"page_id":"page-9","from":"2025-01-01"}`,
		map[string]string{"Authorization": "Bearer w"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.ledger.recomputes, 1)
	req := env.ledger.recomputes[0]
	assert.Equal(t, "page-9", req.RecordID)
	assert.Equal(t, "2025-01-01", req.From)
	assert.Equal(t, models.GroupByTotal, req.GroupBy)

	body := decodeBody(t, rr)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "2024-12-16", body["window_from"])
	assert.Equal(t, float64(3), body["entries_written"])
}

func TestRecompute_Unauthorized(t *testing.T) {
	cfg := configuredConfig()
	cfg.Auth.WriteSecret = "w"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/asset-log/recompute", "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, env.ledger.recomputes)

	rr = env.do(http.MethodGet, "/api/asset-log/recompute", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRecompute_MissingLedgerDatabase(t *testing.T) {
	cfg := configuredConfig()
	cfg.Databases.AssetLog = ""
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/asset-log/recompute", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "NOTION_ASSET_LOG_DB_ID")
	assert.Empty(t, env.ledger.recomputes)
}

func TestSync_ModeFromQuery(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodPost, "/api/asset-log/sync?mode=forecast&from=2024-10-01&to=2024-12-31", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.ledger.syncs, 1)
	assert.Equal(t, models.FlagForecast, env.ledger.syncs[0].FlagMode)
	assert.Equal(t, "2024-10-01", env.ledger.syncs[0].From)
	assert.Equal(t, "2024-12-31", env.ledger.syncs[0].To)
	assert.Equal(t, "forecast", decodeBody(t, rr)["mode"])
}

func TestWebhook_GetReportsTime(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodGet, "/api/webhook/notion", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "2025-01-15T09:30:00Z", body["time"])
}

func TestWebhook_PostChecksSecretHeader(t *testing.T) {
	cfg := configuredConfig()
	cfg.Auth.WebhookSecret = "hook"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/webhook/notion", `{"page_id":"p1"}`, map[string]string{"X-Webhook-Secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, env.ledger.recomputes)

	rr = env.do(http.MethodPost, "/api/webhook/notion", `{"page_id":"p1"}`, map[string]string{"X-Webhook-Secret": "hook"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.ledger.recomputes, 1)
	assert.Equal(t, "p1", env.ledger.recomputes[0].RecordID)
}

func TestWebhook_EmptyBodyUsesDefaultWindow(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodPost, "/api/webhook/notion", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.ledger.recomputes, 1)
	assert.Equal(t, models.RecomputeRequest{}, env.ledger.recomputes[0])
}

// --- transactions ---

func TestTransactions_List(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.transactions.items = []models.EnrichedTransaction{
		{Transaction: models.Transaction{ID: "a", Title: "Rent", Date: "2025-01-01", Amount: -1500}, Month: "2025-01", IsExpense: true},
	}

	rr := env.do(http.MethodGet, "/api/transactions?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 10, env.transactions.limit)
	body := decodeBody(t, rr)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "2025-01", items[0].(map[string]interface{})["month"])
}

func TestTransactions_Create(t *testing.T) {
	cfg := configuredConfig()
	cfg.Auth.WriteSecret = "w"
	env := newTestEnv(t, cfg)

	rr := env.do(http.MethodPost, "/api/transactions", `{"title":"Coffee","date":"2025-01-15","amount":-4.5}`,
		map[string]string{"Authorization": "Bearer w"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, env.transactions.created, 1)
	assert.Equal(t, "Coffee", env.transactions.created[0].Title)
	assert.Equal(t, "ext-1", decodeBody(t, rr)["external_id"])
}

func TestTransactions_CreateDuplicateIs409(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.transactions.err = &common.DuplicateError{ExternalID: "abc123"}

	rr := env.do(http.MethodPost, "/api/transactions", `{"title":"Coffee","date":"2025-01-15","amount":-4.5}`, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "duplicate", body["error"])
	assert.Equal(t, "abc123", body["external_id"])
}

func TestTransactions_CreateInvalidJSON(t *testing.T) {
	env := newTestEnv(t, configuredConfig())

	rr := env.do(http.MethodPost, "/api/transactions", `{"title":`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, env.transactions.created)
}

func TestTransactions_Meta(t *testing.T) {
	env := newTestEnv(t, configuredConfig())
	env.transactions.meta = &models.TransactionMeta{PaymentMethods: []string{"Card"}, TransactionTypes: []string{"expense"}}

	rr := env.do(http.MethodGet, "/api/transactions/meta", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, []interface{}{"Card"}, body["payment_methods"])
}

func TestWriteServiceError_NotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, fmt.Errorf("page p1: %w", common.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 90},
		{"limit=10", 10},
		{"limit=0", 90},
		{"limit=-5", 90},
		{"limit=400", 365},
		{"limit=x", 90},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/snapshots?"+tt.query, nil)
		assert.Equal(t, tt.want, queryLimit(req, 90, 365), tt.query)
	}
}

func TestNewServer_ConfiguredAddressAndTimeouts(t *testing.T) {
	cfg := configuredConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 4100
	cfg.Server.WriteTimeout = "2m"
	env := newTestEnv(t, cfg)

	assert.Equal(t, "127.0.0.1:4100", env.server.server.Addr)
	assert.Equal(t, 2*time.Minute, env.server.server.WriteTimeout)
	assert.Equal(t, 30*time.Second, env.server.server.ReadTimeout)
}
