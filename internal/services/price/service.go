// Package price resolves unit prices for holdings from market and crypto providers
package price

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Service implements PriceResolver
type Service struct {
	market interfaces.MarketPriceClient
	crypto interfaces.CryptoPriceClient
	base   string
	logger *common.Logger
}

var _ interfaces.PriceResolver = (*Service)(nil)

// NewService creates a resolver. Crypto prices are requested in baseCurrency.
func NewService(market interfaces.MarketPriceClient, crypto interfaces.CryptoPriceClient, baseCurrency string, logger *common.Logger) *Service {
	return &Service{
		market: market,
		crypto: crypto,
		base:   common.NormalizeCurrency(baseCurrency, "USD"),
		logger: logger,
	}
}

// buckets splits holdings into deduplicated market symbols and crypto keys.
func buckets(holdings []*models.Holding) (symbols, ids []string) {
	seenSym := make(map[string]bool)
	seenID := make(map[string]bool)
	for _, h := range holdings {
		switch h.PriceSource {
		case models.PriceSourceYahoo:
			if h.Symbol != "" && !seenSym[h.Symbol] {
				seenSym[h.Symbol] = true
				symbols = append(symbols, h.Symbol)
			}
		case models.PriceSourceCoinGecko:
			if key := h.CryptoKey(); key != "" && !seenID[key] {
				seenID[key] = true
				ids = append(ids, key)
			}
		}
	}
	return symbols, ids
}

// Resolve queries both providers concurrently, one batched request each.
// Either provider failing fails the whole resolve.
func (s *Service) Resolve(ctx context.Context, holdings []*models.Holding) (*models.PriceQuotes, error) {
	symbols, ids := buckets(holdings)
	quotes := &models.PriceQuotes{
		Market: map[string]float64{},
		Crypto: map[string]float64{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(symbols) > 0 {
		g.Go(func() error {
			prices, err := s.market.GetPrices(gctx, symbols)
			if err != nil {
				return fmt.Errorf("market prices: %w", err)
			}
			quotes.Market = prices
			return nil
		})
	}
	if len(ids) > 0 {
		g.Go(func() error {
			prices, err := s.crypto.GetPrices(gctx, ids, strings.ToLower(s.base))
			if err != nil {
				return fmt.Errorf("crypto prices: %w", err)
			}
			quotes.Crypto = prices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if quotes.Market == nil {
		quotes.Market = map[string]float64{}
	}
	if quotes.Crypto == nil {
		quotes.Crypto = map[string]float64{}
	}

	s.logger.Debug().
		Int("symbols", len(symbols)).Int("market_quotes", len(quotes.Market)).
		Int("crypto_ids", len(ids)).Int("crypto_quotes", len(quotes.Crypto)).
		Msg("Prices resolved")
	return quotes, nil
}
