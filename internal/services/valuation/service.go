// Package valuation values the portfolio in the base currency
package valuation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Service implements ValuationService
type Service struct {
	holdings  interfaces.HoldingStore
	prices    interfaces.PriceResolver
	converter interfaces.CurrencyConverter
	onFXError string
	logger    *common.Logger
}

var _ interfaces.ValuationService = (*Service)(nil)

// NewService creates a valuation service. onFXError is common.FXErrorAbort
// (any conversion failure fails the valuation) or common.FXErrorSkip (the
// holding is left out and reported in Skipped).
func NewService(holdings interfaces.HoldingStore, prices interfaces.PriceResolver, converter interfaces.CurrencyConverter, onFXError string, logger *common.Logger) *Service {
	if onFXError != common.FXErrorSkip {
		onFXError = common.FXErrorAbort
	}
	return &Service{
		holdings:  holdings,
		prices:    prices,
		converter: converter,
		onFXError: onFXError,
		logger:    logger,
	}
}

// unitPrice returns the holding's unit price and the currency it is quoted in.
func (s *Service) unitPrice(h *models.Holding, quotes *models.PriceQuotes) (float64, string, bool) {
	base := s.converter.BaseCurrency()
	switch h.PriceSource {
	case models.PriceSourceManual:
		if h.ManualPrice == nil {
			return 0, "", false
		}
		return *h.ManualPrice, common.NormalizeCurrency(h.Currency, base), true
	case models.PriceSourceYahoo:
		p, ok := quotes.Market[h.Symbol]
		return p, common.NormalizeCurrency(h.Currency, "USD"), ok
	case models.PriceSourceCoinGecko:
		p, ok := quotes.Crypto[h.CryptoKey()]
		return p, base, ok
	}
	return 0, "", false
}

func (s *Service) ComputeValuation(ctx context.Context) (*models.PortfolioValuation, error) {
	holdings, err := s.holdings.ListHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	quotes, err := s.prices.Resolve(ctx, holdings)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prices: %w", err)
	}

	base := s.converter.BaseCurrency()
	result := &models.PortfolioValuation{
		BaseCurrency: base,
		ByAsset:      []models.AssetValue{},
	}
	total := decimal.Zero

	for _, h := range holdings {
		if h.Name == "" || h.Quantity <= 0 {
			reason := "non-positive quantity"
			if h.Name == "" {
				reason = "missing name"
			}
			s.logger.DataGap(common.DataGap{Database: "holdings", RecordID: h.ID, Reason: reason})
			continue
		}

		unit, currency, ok := s.unitPrice(h, quotes)
		if !ok || unit <= 0 {
			s.logger.Debug().Str("holding", h.Name).Str("symbol", h.Symbol).Str("source", string(h.PriceSource)).Msg("No usable price; holding excluded")
			continue
		}

		unitInBase := unit
		if currency != base {
			unitInBase, err = s.converter.ToBase(ctx, unit, currency)
			if err != nil {
				if s.onFXError == common.FXErrorAbort {
					return nil, fmt.Errorf("convert %s %s: %w", h.Symbol, currency, err)
				}
				reason := err.Error()
				if errors.Is(err, common.ErrRateUnavailable) {
					reason = fmt.Sprintf("no FX rate %s->%s", currency, base)
				}
				s.logger.Warn().Str("holding", h.Name).Str("currency", currency).Err(err).Msg("FX conversion failed; holding skipped")
				result.Skipped = append(result.Skipped, models.SkippedHolding{Name: h.Name, Symbol: h.Symbol, Reason: reason})
				continue
			}
		}

		value := decimal.NewFromFloat(unitInBase).Mul(decimal.NewFromFloat(h.Quantity))
		total = total.Add(value)
		result.ByAsset = append(result.ByAsset, models.AssetValue{
			Name:     h.Name,
			Symbol:   h.Symbol,
			Value:    value.Round(2).InexactFloat64(),
			Quantity: h.Quantity,
		})
	}

	sort.SliceStable(result.ByAsset, func(i, j int) bool {
		return result.ByAsset[i].Value > result.ByAsset[j].Value
	})
	result.TotalValue = total.Round(2).InexactFloat64()

	s.logger.Info().
		Float64("total", result.TotalValue).
		Str("currency", base).
		Int("assets", len(result.ByAsset)).
		Int("skipped", len(result.Skipped)).
		Msg("Portfolio valued")
	return result, nil
}
