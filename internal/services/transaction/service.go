// Package transaction lists, enriches and creates income and expense records
package transaction

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// List limits for ListTransactions.
const (
	DefaultListLimit = 1000
	MaxListLimit     = 2000
)

// dueSoonDays is how far ahead a due date counts as due soon.
const dueSoonDays = 60

// largeExpense is the absolute amount from which an expense is flagged.
const largeExpense = 10000

// Service implements TransactionService
type Service struct {
	store  interfaces.TransactionStore
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.TransactionService = (*Service)(nil)

func NewService(store interfaces.TransactionStore, logger *common.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// ListTransactions returns the newest transactions with display flags.
func (s *Service) ListTransactions(ctx context.Context, limit int) ([]models.EnrichedTransaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	set, err := s.store.QueryTransactions(ctx, models.TransactionQuery{Descending: true, Limit: limit})
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	out := make([]models.EnrichedTransaction, 0, len(set.Transactions))
	for _, t := range set.Transactions {
		out = append(out, Enrich(*t, today))
	}
	return out, nil
}

// Enrich derives the month and flag fields of a transaction relative to today.
func Enrich(t models.Transaction, today time.Time) models.EnrichedTransaction {
	e := models.EnrichedTransaction{Transaction: t, IsExpense: t.IsExpense()}
	if len(t.Date) >= 7 {
		e.Month = t.Date[:7]
	}
	if due, err := time.Parse(common.DateLayout, t.DueDate); err == nil {
		days := int(due.Sub(today).Hours() / 24)
		e.IsDueSoon = days >= 0 && days <= dueSoonDays
	}
	e.Gte10k = e.IsExpense && math.Abs(t.Amount) >= largeExpense
	return e
}

// ExternalID returns the deduplication id of a new transaction:
// the hex sha1 of "title|date|amount".
func ExternalID(title, date string, amount float64) string {
	sum := sha1.Sum([]byte(title + "|" + date + "|" + strconv.FormatFloat(amount, 'f', -1, 64)))
	return hex.EncodeToString(sum[:])
}

func validate(input models.TransactionInput) (string, error) {
	var missing []string
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Date) == "" {
		missing = append(missing, "date")
	}
	if input.Amount == nil || math.IsNaN(*input.Amount) || math.IsInf(*input.Amount, 0) {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s required", common.ErrInvalidInput, strings.Join(missing, ", "))
	}
	date, ok := common.NormalizeDate(input.Date)
	if !ok {
		return "", fmt.Errorf("%w: invalid date %q", common.ErrInvalidInput, input.Date)
	}
	return date, nil
}

// CreateTransaction writes a new transaction unless one with the same
// external id exists, in which case a *common.DuplicateError is returned.
func (s *Service) CreateTransaction(ctx context.Context, input models.TransactionInput) (*models.Transaction, error) {
	date, err := validate(input)
	if err != nil {
		return nil, err
	}

	ext := strings.TrimSpace(input.ExternalID)
	if ext == "" {
		ext = ExternalID(input.Title, input.Date, *input.Amount)
	}

	existing, err := s.store.FindByExternalID(ctx, ext)
	switch {
	case err != nil && errors.Is(err, common.ErrUpstream):
		// a store without the external id field cannot be checked
		s.logger.Warn().Err(err).Str("external_id", ext).Msg("Duplicate check failed; creating anyway")
	case err != nil:
		return nil, err
	case existing != nil:
		return nil, &common.DuplicateError{ExternalID: ext}
	}

	t := &models.Transaction{
		Title:           strings.TrimSpace(input.Title),
		Date:            date,
		Amount:          *input.Amount,
		AmountConfirmed: input.AmountConfirmed,
		Verified:        input.Verified,
		TransactionType: strings.TrimSpace(input.TransactionType),
		PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
		AssetType:       strings.TrimSpace(input.AssetType),
		ExternalID:      ext,
	}
	if input.DueDate != "" {
		due, ok := common.NormalizeDate(input.DueDate)
		if !ok {
			return nil, fmt.Errorf("%w: invalid due_date %q", common.ErrInvalidInput, input.DueDate)
		}
		t.DueDate = due
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("id", created.ID).Str("external_id", ext).Float64("amount", created.Amount).Msg("Transaction created")
	return created, nil
}

func (s *Service) TransactionMeta(ctx context.Context) (*models.TransactionMeta, error) {
	return s.store.TransactionMeta(ctx)
}
