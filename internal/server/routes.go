package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Valuation
	mux.HandleFunc("/api/compute", s.handleCompute)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/snapshots/chart.png", s.handleSnapshotChart)
	mux.HandleFunc("/api/cron/snapshot", s.handleCronSnapshot)

	// Asset log
	mux.HandleFunc("/api/asset-log", s.handleAssetLogList)
	mux.HandleFunc("/api/asset-log/recompute", s.handleAssetLogRecompute)
	mux.HandleFunc("/api/asset-log/sync", s.handleAssetLogSync)
	mux.HandleFunc("/api/webhook/notion", s.handleNotionWebhook)

	// Transactions
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/meta", s.handleTransactionMeta)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"commit":     common.GitCommit,
		"go":         runtime.Version(),
		"uptime_sec": int(time.Since(s.app.StartupTime).Seconds()),
	})
}

// handleConfig reports the settings the browser UI needs. Secrets and
// database ids are never included.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"base_currency": s.app.Config.BaseCurrency,
		"aggregate_by":  s.app.Config.Ledger.AggregateBy,
	})
}
