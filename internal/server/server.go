// Package server is folio's JSON-over-HTTP surface.
//
// Routes fall into four groups, all registered in routes.go:
//
//   - system: health, version and the redacted config
//   - valuation: live valuation against the latest snapshot, snapshot
//     history (JSON and a PNG chart) and the cron snapshot trigger
//   - asset log: listing, recompute over a window, the cash/forecast sync
//     and the Notion page webhook that recomputes around one record
//   - transactions: create with duplicate detection, list and select options
//
// Reads are open. Writes need the shared write secret or a JWT signed with
// it. The cron trigger checks the cron secret and the webhook its own secret.
// Handlers only translate HTTP to service calls; every rule about valuation
// and the ledger lives in internal/services.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
)

// Server owns the http.Server around folio's services.
type Server struct {
	app    *app.App
	server *http.Server
	logger *common.Logger
	now    func() time.Time
}

// NewServer builds the handler chain and an http.Server bound to the
// configured address. Nothing listens until Start.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
		now:    time.Now,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	cfg := a.Config.Server
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      applyMiddleware(mux, a.Logger),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the full handler chain, middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown; it returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Str("store", s.app.Config.Store.Backend).
		Str("base_currency", s.app.Config.BaseCurrency).
		Dur("write_timeout", s.server.WriteTimeout).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones, which may
// include a recompute holding a ledger lease, until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
