package server

import (
	"net/http"
	"strconv"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/snapshot"
)

// snapshotResponse is returned by the record snapshot endpoints.
type snapshotResponse struct {
	OK bool `json:"ok"`
	*models.SnapshotResult
}

// handleCompute values the portfolio against the latest snapshot without writing.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.app.Config.ValidateValuation(); err != nil {
		WriteServiceError(w, err)
		return
	}

	comparison, err := s.app.SnapshotService.Compare(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Valuation failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, comparison)
}

// handleSnapshots lists snapshots (GET) or records one (POST, cron secret).
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSnapshotList(w, r)
	case http.MethodPost:
		s.recordSnapshot(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Config.ValidateSnapshots(); err != nil {
		WriteServiceError(w, err)
		return
	}

	limit := queryLimit(r, snapshot.DefaultListLimit, snapshot.MaxListLimit)
	snaps, err := s.app.SnapshotService.ListSnapshots(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snaps,
		"count":     len(snaps),
	})
}

// handleCronSnapshot records a snapshot for an external scheduler.
func (s *Server) handleCronSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	s.recordSnapshot(w, r)
}

func (s *Server) recordSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r, s.app.Config.Auth.CronSecret) {
		return
	}
	if err := s.app.Config.ValidateValuation(); err != nil {
		WriteServiceError(w, err)
		return
	}

	result, err := s.app.SnapshotService.RecordSnapshot(r.Context(), s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Snapshot failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, snapshotResponse{OK: true, SnapshotResult: result})
}

// handleSnapshotChart renders snapshot history as a PNG line chart.
func (s *Server) handleSnapshotChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.app.Config.ValidateSnapshots(); err != nil {
		WriteServiceError(w, err)
		return
	}

	limit := queryLimit(r, snapshot.DefaultListLimit, snapshot.MaxListLimit)
	snaps, err := s.app.SnapshotService.ListSnapshots(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	png, err := s.app.SnapshotService.RenderChart(snaps)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
