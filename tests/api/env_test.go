package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/server"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

const writeSecret = "e2e-write"

// Env is an isolated end-to-end environment: the full HTTP handler over a
// fresh SurrealDB database in the shared container.
type Env struct {
	t      *testing.T
	App    *app.App
	Server *httptest.Server
	guard  *tcommon.TestOutputGuard
}

// NewEnv starts the environment. Skipped unless FOLIO_TEST_DOCKER=true.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	if !tcommon.DockerEnabled() {
		t.Skip("Docker tests disabled (set FOLIO_TEST_DOCKER=true to enable)")
	}

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Store.Backend = common.BackendSurrealDB
	cfg.Store.SurrealDB = tcommon.StartSurrealDB(t).Config(t)
	cfg.Databases = common.DatabasesConfig{
		Holdings:     "holdings",
		Snapshots:    "snapshots",
		Transactions: "transactions",
		AssetLog:     "asset_log",
	}
	cfg.Auth.WriteSecret = writeSecret
	cfg.Auth.CronSecret = writeSecret

	a, err := app.NewAppWithConfig(context.Background(), cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewAppWithConfig failed: %v", err)
	}

	ts := httptest.NewServer(server.NewServer(a).Handler())
	env := &Env{t: t, App: a, Server: ts, guard: tcommon.NewTestOutputGuard(t)}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup stops the server and closes the app.
func (e *Env) Cleanup() {
	if e == nil {
		return
	}
	e.Server.Close()
	e.App.Close()
}

// Do sends a request with the write secret and returns the status and body.
// The body is saved to the results directory under name.
func (e *Env) Do(name, method, path string, body interface{}) (int, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+writeSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read response: %v", err)
	}
	if err := e.guard.SaveResult(name, tcommon.FormatJSON(out)); err != nil {
		e.t.Logf("Warning: failed to save result %s: %v", name, err)
	}
	return resp.StatusCode, out
}

// Decode unmarshals a response body, failing the test on error.
func (e *Env) Decode(body []byte, v interface{}) {
	e.t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		e.t.Fatalf("decode response: %v\n%s", err, strings.TrimSpace(string(body)))
	}
}

// Guard returns the output guard sharing this environment's results directory.
func (e *Env) Guard() *tcommon.TestOutputGuard {
	return e.guard
}
