// Package fx converts amounts between currencies using cached spot rates
package fx

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// Service implements CurrencyConverter
type Service struct {
	client interfaces.FXClient
	cache  *RateCache
	base   string
	logger *common.Logger
}

var _ interfaces.CurrencyConverter = (*Service)(nil)

// NewService creates a converter for the given base currency.
// The cache is shared by every caller of the returned service.
func NewService(client interfaces.FXClient, cache *RateCache, baseCurrency string, logger *common.Logger) *Service {
	if cache == nil {
		cache = NewRateCache(DefaultCacheTTL)
	}
	return &Service{
		client: client,
		cache:  cache,
		base:   common.NormalizeCurrency(baseCurrency, "USD"),
		logger: logger,
	}
}

func (s *Service) BaseCurrency() string {
	return s.base
}

// Rate returns how many units of to one unit of from buys.
// Concurrent misses for the same pair may each fetch; the last write wins.
func (s *Service) Rate(ctx context.Context, from, to string) (float64, error) {
	f := common.NormalizeCurrency(from, "USD")
	t := common.NormalizeCurrency(to, "USD")
	if f == t {
		return 1, nil
	}

	key := cacheKey(f, t)
	if rate, ok := s.cache.Get(key); ok {
		return rate, nil
	}

	rate, err := s.client.GetRate(ctx, f, t)
	if err != nil {
		return 0, fmt.Errorf("fx rate %s: %w", key, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: FX rate not available %s->%s", common.ErrRateUnavailable, f, t)
	}

	s.cache.Put(key, rate)
	s.logger.Debug().Str("pair", key).Float64("rate", rate).Msg("FX rate fetched")
	return rate, nil
}

func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func (s *Service) ToBase(ctx context.Context, amount float64, currency string) (float64, error) {
	return s.Convert(ctx, amount, common.NormalizeCurrency(currency, s.base), s.base)
}
