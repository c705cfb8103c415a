package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/ledger"
)

// recomputeResponse is returned by every recompute trigger.
type recomputeResponse struct {
	OK bool `json:"ok"`
	*models.RecomputeResult
}

// recomputeRequestFromQuery fills empty request fields from query parameters.
func recomputeRequestFromQuery(r *http.Request, req *models.RecomputeRequest) {
	q := r.URL.Query()
	if req.RecordID == "" {
		req.RecordID = q.Get("page_id")
	}
	if req.From == "" {
		req.From = q.Get("from")
	}
	if req.To == "" {
		req.To = q.Get("to")
	}
	if req.GroupBy == "" {
		req.GroupBy = models.GroupBy(q.Get("group_by"))
	}
	if req.FlagMode == "" {
		req.FlagMode = models.FlagMode(q.Get("mode"))
	}
}

func (s *Server) handleAssetLogList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.app.Config.ValidateAssetLog(); err != nil {
		WriteServiceError(w, err)
		return
	}

	q := r.URL.Query()
	limit := queryLimit(r, ledger.DefaultListLimit, ledger.MaxListLimit)
	entries, err := s.app.LedgerService.ListEntries(r.Context(), q.Get("from"), q.Get("to"), limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleAssetLogRecompute rebuilds the asset log for a window. The body and
// query may carry page_id, from, to, group_by and mode.
func (s *Server) handleAssetLogRecompute(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireBearer(w, r, s.app.Config.Auth.WriteSecret) {
		return
	}
	if err := s.app.Config.ValidateLedger(); err != nil {
		WriteServiceError(w, err)
		return
	}

	var req models.RecomputeRequest
	decodeOptionalJSON(r, &req)
	recomputeRequestFromQuery(r, &req)

	s.recompute(w, r, req)
}

// handleAssetLogSync rebuilds the cash (default) or forecast view of the
// trailing sync window.
func (s *Server) handleAssetLogSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireBearer(w, r, s.app.Config.Auth.WriteSecret) {
		return
	}
	if err := s.app.Config.ValidateLedger(); err != nil {
		WriteServiceError(w, err)
		return
	}

	var req models.RecomputeRequest
	decodeOptionalJSON(r, &req)
	recomputeRequestFromQuery(r, &req)

	result, err := s.app.LedgerService.Sync(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Asset log sync failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, recomputeResponse{OK: true, RecomputeResult: result})
}

// handleNotionWebhook answers liveness probes on GET and recomputes the
// window around the changed page on POST.
func (s *Server) handleNotionWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok":   true,
			"time": s.now().UTC().Format(time.RFC3339),
		})
		return
	case http.MethodPost:
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
		return
	}

	if !s.requireWebhookSecret(w, r) {
		return
	}
	if err := s.app.Config.ValidateLedger(); err != nil {
		WriteServiceError(w, err)
		return
	}

	var body struct {
		PageID string `json:"page_id"`
	}
	decodeOptionalJSON(r, &body)

	s.recompute(w, r, models.RecomputeRequest{RecordID: body.PageID})
}

func (s *Server) recompute(w http.ResponseWriter, r *http.Request, req models.RecomputeRequest) {
	result, err := s.app.LedgerService.Recompute(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Str("page_id", req.RecordID).Msg("Asset log recompute failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, recomputeResponse{OK: true, RecomputeResult: result})
}
