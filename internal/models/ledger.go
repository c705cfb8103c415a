package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GroupBy selects the dimension transactions and ledger entries are grouped by.
type GroupBy string

const (
	GroupByAssetType     GroupBy = "asset_type"
	GroupByPaymentMethod GroupBy = "payment_method"
	GroupByTotal         GroupBy = "total"
)

// Group names used when a transaction has no value for the grouping field.
const (
	GroupTotal   = "Total"
	GroupUnknown = "Unknown"
)

// ParseGroupBy parses an aggregation mode. Empty defaults to asset type.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GroupByAssetType:
		return GroupByAssetType, nil
	case GroupByPaymentMethod:
		return GroupByPaymentMethod, nil
	case GroupByTotal:
		return GroupByTotal, nil
	}
	return "", fmt.Errorf("invalid group_by %q; must be asset_type, payment_method or total", s)
}

// GroupKey returns the ledger group a transaction belongs to.
func (g GroupBy) GroupKey(t Transaction) string {
	switch g {
	case GroupByTotal:
		return GroupTotal
	case GroupByPaymentMethod:
		if t.PaymentMethod == "" {
			return GroupUnknown
		}
		return t.PaymentMethod
	default:
		if t.AssetType == "" {
			return GroupUnknown
		}
		return t.AssetType
	}
}

// FlagMode selects which confirmation flags admit a transaction.
// The zero value applies no flag filter.
type FlagMode string

const (
	FlagNone     FlagMode = ""
	FlagAny      FlagMode = "any"      // amount confirmed OR verified
	FlagCash     FlagMode = "cash"     // verified
	FlagForecast FlagMode = "forecast" // amount confirmed
)

// ParseFlagMode parses a sync mode. Empty defaults to cash, matching the sync endpoint.
func ParseFlagMode(s string) (FlagMode, error) {
	switch FlagMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FlagCash:
		return FlagCash, nil
	case FlagForecast:
		return FlagForecast, nil
	case FlagAny:
		return FlagAny, nil
	}
	return "", fmt.Errorf("invalid mode %q; must be cash, forecast or any", s)
}

// Admits reports whether a transaction passes the confirmation filter.
func (m FlagMode) Admits(t Transaction) bool {
	switch m {
	case FlagCash:
		return t.Verified
	case FlagForecast:
		return t.AmountConfirmed
	case FlagAny:
		return t.AmountConfirmed || t.Verified
	}
	return true
}

// DateWindow is an inclusive range of YYYY-MM-DD dates.
type DateWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains reports whether date falls inside the window. An empty bound is open.
func (w DateWindow) Contains(date string) bool {
	if date == "" {
		return false
	}
	return (w.From == "" || date >= w.From) && (w.To == "" || date <= w.To)
}

// NaturalKey identifies a ledger entry independently of any storage id.
type NaturalKey struct {
	Date  string `json:"date"`
	Group string `json:"group"`
}

func (k NaturalKey) String() string {
	return k.Date + "|" + k.Group
}

// DailyDeltas maps (date, group) to the signed sum of that day's transactions.
type DailyDeltas map[NaturalKey]decimal.Decimal

// Add accumulates amount into the bucket for key.
func (d DailyDeltas) Add(key NaturalKey, amount float64) {
	d[key] = d[key].Add(decimal.NewFromFloat(amount))
}

// Balances maps a group to a balance.
type Balances map[string]decimal.Decimal

// LedgerEntry is one Asset Log row.
type LedgerEntry struct {
	ID      string  `json:"id,omitempty"`
	Date    string  `json:"date"`
	Group   string  `json:"group"`
	Delta   float64 `json:"delta"`
	Balance float64 `json:"balance"`
}

// Key returns the entry's natural key.
func (e LedgerEntry) Key() NaturalKey {
	return NaturalKey{Date: e.Date, Group: e.Group}
}

// RecomputeRequest describes one asset log recompute.
type RecomputeRequest struct {
	RecordID string   `json:"page_id,omitempty"` // changed transaction; centres the window on its date
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	GroupBy  GroupBy  `json:"group_by,omitempty"`
	FlagMode FlagMode `json:"mode,omitempty"`
}

// RecomputeResult summarises one asset log recompute.
type RecomputeResult struct {
	WindowFrom     string   `json:"window_from"`
	WindowTo       string   `json:"window_to"`
	GroupBy        GroupBy  `json:"group_by"`
	FlagMode       FlagMode `json:"mode"`
	FocusGroup     string   `json:"focus_group,omitempty"`
	EntriesWritten int      `json:"entries_written"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped_transactions,omitempty"`
}
