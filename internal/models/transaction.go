package models

import "strings"

// Transaction is one income or expense record. Negative amounts are expenses.
type Transaction struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	AmountConfirmed bool    `json:"amount_confirmed"`
	Verified        bool    `json:"verified"`
	DueDate         string  `json:"due_date,omitempty"`
	TransactionType string  `json:"transaction_type,omitempty"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	AssetType       string  `json:"asset_type,omitempty"`
	ExternalID      string  `json:"external_id,omitempty"`
}

// IsExpense reports whether the transaction type marks an expense
// ("expense" in any case, or "支出").
func (t Transaction) IsExpense() bool {
	return strings.EqualFold(t.TransactionType, "expense") || strings.Contains(t.TransactionType, "支出")
}

// EnrichedTransaction adds derived display flags to a transaction.
type EnrichedTransaction struct {
	Transaction
	Month     string `json:"month"`
	IsDueSoon bool   `json:"is_due_soon"`
	IsExpense bool   `json:"is_expense"`
	Gte10k    bool   `json:"gte_10k"`
}

// TransactionQuery selects transactions by date window and confirmation flags.
// Empty From/To leave that side of the window open.
type TransactionQuery struct {
	From       string
	To         string
	FlagMode   FlagMode
	Descending bool // newest first; ascending by date otherwise
	Limit      int  // 0 means all
}

// TransactionSet is the result of a transaction query. Gaps counts records
// skipped because they had no readable date or amount.
type TransactionSet struct {
	Transactions []*Transaction
	Gaps         int
}

// TransactionInput is the body of a create request.
type TransactionInput struct {
	Title           string   `json:"title"`
	Date            string   `json:"date"`
	Amount          *float64 `json:"amount"`
	TransactionType string   `json:"transaction_type,omitempty"`
	DueDate         string   `json:"due_date,omitempty"`
	AmountConfirmed bool     `json:"amount_confirmed,omitempty"`
	Verified        bool     `json:"verified,omitempty"`
	PaymentMethod   string   `json:"payment_method,omitempty"`
	AssetType       string   `json:"asset_type,omitempty"`
	ExternalID      string   `json:"external_id,omitempty"`
}

// TransactionMeta lists the select options defined on the transactions database.
type TransactionMeta struct {
	PaymentMethods   []string `json:"payment_methods"`
	TransactionTypes []string `json:"transaction_types"`
}
