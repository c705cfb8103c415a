package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// maxTitleLength is the longest title text written to the store.
const maxTitleLength = 2000

type transactionStore struct {
	docs     interfaces.DocumentStore
	database string
	fields   common.TransactionFields
	logger   *common.Logger
}

var _ interfaces.TransactionStore = (*transactionStore)(nil)

func newTransactionStore(docs interfaces.DocumentStore, database string, fields common.TransactionFields, logger *common.Logger) *transactionStore {
	return &transactionStore{docs: docs, database: database, fields: fields, logger: logger}
}

// flagFilter translates a flag mode into a store-side filter.
func (s *transactionStore) flagFilter(mode models.FlagMode) (models.Filter, bool) {
	switch mode {
	case models.FlagCash:
		return models.CheckboxIs(s.fields.Verified, true), true
	case models.FlagForecast:
		return models.CheckboxIs(s.fields.AmountConfirmed, true), true
	case models.FlagAny:
		return models.Or(
			models.CheckboxIs(s.fields.AmountConfirmed, true),
			models.CheckboxIs(s.fields.Verified, true),
		), true
	}
	return models.Filter{}, false
}

func (s *transactionStore) QueryTransactions(ctx context.Context, q models.TransactionQuery) (*models.TransactionSet, error) {
	filters := dateWindowFilter(s.fields.Date, models.DateWindow{From: q.From, To: q.To})
	if f, ok := s.flagFilter(q.FlagMode); ok {
		filters = append(filters, f)
	}

	query := models.Query{Sorts: []models.Sort{{Field: s.fields.Date, Descending: q.Descending}}}
	if len(filters) > 0 {
		query.Filter = models.And(filters...)
	}

	records, err := queryAll(ctx, s.docs, s.database, query, q.Limit)
	if err != nil {
		return nil, err
	}

	set := &models.TransactionSet{Transactions: make([]*models.Transaction, 0, len(records))}
	for _, rec := range records {
		t := s.toTransaction(rec)
		if t.Date == "" {
			set.Gaps++
			s.logger.DataGap(common.DataGap{Database: s.database, RecordID: rec.ID, Reason: "missing date"})
			continue
		}
		if _, ok := rec.Number(s.fields.Amount); !ok {
			set.Gaps++
			s.logger.DataGap(common.DataGap{Database: s.database, RecordID: rec.ID, Reason: "missing amount"})
			continue
		}
		set.Transactions = append(set.Transactions, t)
	}
	return set, nil
}

func (s *transactionStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	rec, err := s.docs.Retrieve(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retrieve transaction %s: %w", id, err)
	}
	return s.toTransaction(rec), nil
}

func (s *transactionStore) FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	if s.fields.ExternalID == "" || externalID == "" {
		return nil, nil
	}
	q := models.Query{Filter: models.And(models.Equals(s.fields.ExternalID, models.RichTextValue(externalID)))}
	records, err := queryAll(ctx, s.docs, s.database, q, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return s.toTransaction(records[0]), nil
}

func (s *transactionStore) CreateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	title := t.Title
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}

	fields := models.Fields{}
	setIf(fields, s.fields.Title, models.TitleValue(title))
	setIf(fields, s.fields.Date, models.DateValue(t.Date))
	setIf(fields, s.fields.Amount, models.NumberValue(t.Amount))
	setIf(fields, s.fields.AmountConfirmed, models.CheckboxValue(t.AmountConfirmed))
	setIf(fields, s.fields.Verified, models.CheckboxValue(t.Verified))
	if t.DueDate != "" {
		setIf(fields, s.fields.DueDate, models.DateValue(t.DueDate))
	}
	if t.TransactionType != "" {
		setIf(fields, s.fields.TransactionType, models.SelectValue(t.TransactionType))
	}
	if t.PaymentMethod != "" {
		setIf(fields, s.fields.PaymentMethod, models.SelectValue(t.PaymentMethod))
	}
	if t.AssetType != "" {
		setIf(fields, s.fields.AssetType, models.SelectValue(t.AssetType))
	}
	if t.ExternalID != "" {
		setIf(fields, s.fields.ExternalID, models.RichTextValue(t.ExternalID))
	}

	rec, err := s.docs.Create(ctx, s.database, fields)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	out := *t
	out.ID = rec.ID
	out.Title = title
	return &out, nil
}

func (s *transactionStore) TransactionMeta(ctx context.Context) (*models.TransactionMeta, error) {
	schema, err := s.docs.Schema(ctx, s.database)
	if err != nil {
		return nil, fmt.Errorf("transactions schema %s: %w", s.database, err)
	}

	meta := &models.TransactionMeta{PaymentMethods: []string{}, TransactionTypes: []string{}}
	if f, ok := schema.Fields[s.fields.PaymentMethod]; ok {
		meta.PaymentMethods = append(meta.PaymentMethods, f.Options...)
	}
	if f, ok := schema.Fields[s.fields.TransactionType]; ok {
		meta.TransactionTypes = append(meta.TransactionTypes, f.Options...)
	}
	return meta, nil
}

// toTransaction reads every field it can; missing fields stay zero.
func (s *transactionStore) toTransaction(rec *models.Record) *models.Transaction {
	t := &models.Transaction{ID: rec.ID}
	t.Title, _ = rec.Text(s.fields.Title)
	if raw, ok := rec.Date(s.fields.Date); ok {
		t.Date, _ = common.NormalizeDate(raw)
	}
	t.Amount, _ = rec.Number(s.fields.Amount)
	t.AmountConfirmed, _ = rec.Checkbox(s.fields.AmountConfirmed)
	t.Verified, _ = rec.Checkbox(s.fields.Verified)
	if raw, ok := rec.Date(s.fields.DueDate); ok {
		t.DueDate, _ = common.NormalizeDate(raw)
	}
	t.TransactionType, _ = rec.Text(s.fields.TransactionType)
	t.PaymentMethod, _ = rec.Text(s.fields.PaymentMethod)
	t.AssetType, _ = rec.Text(s.fields.AssetType)
	t.ExternalID, _ = rec.Text(s.fields.ExternalID)
	return t
}
