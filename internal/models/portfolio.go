// Package models defines data structures for Folio
package models

import "strings"

// PriceSource identifies the provider that prices a holding.
type PriceSource string

const (
	PriceSourceYahoo     PriceSource = "Yahoo"
	PriceSourceCoinGecko PriceSource = "CoinGecko"
	PriceSourceManual    PriceSource = "Manual"
)

// ParsePriceSource maps a stored select value to a PriceSource.
// Empty values default to Yahoo; unknown values are reported as not ok.
func ParsePriceSource(s string) (PriceSource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yahoo":
		return PriceSourceYahoo, true
	case "coingecko":
		return PriceSourceCoinGecko, true
	case "manual":
		return PriceSourceManual, true
	}
	return "", false
}

// Holding is one position in the portfolio.
type Holding struct {
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name"`
	Category    string      `json:"category,omitempty"`
	Symbol      string      `json:"symbol"`
	Quantity    float64     `json:"quantity"`
	PriceSource PriceSource `json:"price_source"`
	ManualPrice *float64    `json:"manual_price,omitempty"`
	Currency    string      `json:"currency,omitempty"` // empty means unset
	PriceID     string      `json:"price_id,omitempty"` // CoinGecko asset id
}

// CryptoKey returns the CoinGecko lookup key: the price id when set, else the symbol, lower-cased.
func (h Holding) CryptoKey() string {
	key := h.PriceID
	if strings.TrimSpace(key) == "" {
		key = h.Symbol
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// PriceQuotes holds the unit prices resolved for one valuation.
// Market prices are in each holding's own currency, keyed by symbol.
// Crypto prices are already in the base currency, keyed by CryptoKey.
type PriceQuotes struct {
	Market map[string]float64 `json:"market"`
	Crypto map[string]float64 `json:"crypto"`
}

// AssetValue is one entry of a valuation breakdown.
type AssetValue struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Value    float64 `json:"value"`
	Quantity float64 `json:"quantity"`
}

// SkippedHolding records a holding left out of a valuation because its price
// could not be converted.
type SkippedHolding struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// PortfolioValuation is the value of the portfolio in the base currency.
type PortfolioValuation struct {
	BaseCurrency string           `json:"base_currency"`
	TotalValue   float64          `json:"total_value"`
	ByAsset      []AssetValue     `json:"by_asset"`
	Skipped      []SkippedHolding `json:"skipped,omitempty"`
}
