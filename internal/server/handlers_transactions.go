package server

import (
	"net/http"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/transaction"
)

// handleTransactions lists transactions (GET) or creates one (POST, write secret).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleTransactionList(w, r)
	case http.MethodPost:
		s.handleTransactionCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Config.ValidateTransactions(); err != nil {
		WriteServiceError(w, err)
		return
	}

	limit := queryLimit(r, transaction.DefaultListLimit, transaction.MaxListLimit)
	items, err := s.app.TransactionService.ListTransactions(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r, s.app.Config.Auth.WriteSecret) {
		return
	}
	if err := s.app.Config.ValidateTransactions(); err != nil {
		WriteServiceError(w, err)
		return
	}

	var input models.TransactionInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	created, err := s.app.TransactionService.CreateTransaction(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"ok":          true,
		"id":          created.ID,
		"external_id": created.ExternalID,
		"transaction": created,
	})
}

func (s *Server) handleTransactionMeta(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.app.Config.ValidateTransactions(); err != nil {
		WriteServiceError(w, err)
		return
	}

	meta, err := s.app.TransactionService.TransactionMeta(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, meta)
}
