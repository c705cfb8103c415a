package valuation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

type mockHoldings struct {
	holdings []*models.Holding
	err      error
}

func (m *mockHoldings) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	return m.holdings, m.err
}

type mockPrices struct {
	quotes *models.PriceQuotes
	err    error
}

func (m *mockPrices) Resolve(ctx context.Context, holdings []*models.Holding) (*models.PriceQuotes, error) {
	return m.quotes, m.err
}

// mockConverter converts with fixed rates into base and counts ToBase calls.
type mockConverter struct {
	base        string
	rates       map[string]float64
	toBaseCalls int
}

func (m *mockConverter) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	r, ok := m.rates[from]
	if !ok {
		return 0, common.ErrRateUnavailable
	}
	return r, nil
}

func (m *mockConverter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	r, err := m.Rate(ctx, from, to)
	return amount * r, err
}

func (m *mockConverter) ToBase(ctx context.Context, amount float64, currency string) (float64, error) {
	m.toBaseCalls++
	return m.Convert(ctx, amount, currency, m.base)
}

func (m *mockConverter) BaseCurrency() string { return m.base }

func ptr(f float64) *float64 { return &f }

func TestComputeValuation_MixedSources(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{Name: "Apple", Symbol: "AAPL", Quantity: 10, PriceSource: models.PriceSourceYahoo},
		{Name: "Toyota", Symbol: "7203.T", Quantity: 100, PriceSource: models.PriceSourceYahoo, Currency: "JPY"},
		{Name: "Bitcoin", Symbol: "BTC", PriceID: "bitcoin", Quantity: 0.5, PriceSource: models.PriceSourceCoinGecko},
		{Name: "Gold", Symbol: "Gold", Quantity: 2, PriceSource: models.PriceSourceManual, ManualPrice: ptr(100.555)},
		{Name: "Delisted", Symbol: "XXX", Quantity: 5, PriceSource: models.PriceSourceYahoo},
	}}
	prices := &mockPrices{quotes: &models.PriceQuotes{
		Market: map[string]float64{"AAPL": 190, "7203.T": 3000},
		Crypto: map[string]float64{"bitcoin": 60000},
	}}
	conv := &mockConverter{base: "USD", rates: map[string]float64{"JPY": 0.0067}}

	svc := NewService(holdings, prices, conv, common.FXErrorAbort, common.NewSilentLogger())
	v, err := svc.ComputeValuation(context.Background())
	require.NoError(t, err)

	// 1900 + 2010 + 30000 + 201.11
	assert.Equal(t, 34111.11, v.TotalValue)
	require.Len(t, v.ByAsset, 4)
	assert.Equal(t, "Bitcoin", v.ByAsset[0].Name)
	assert.Equal(t, "Gold", v.ByAsset[3].Name)
	assert.Equal(t, 201.11, v.ByAsset[3].Value)
	assert.Equal(t, "USD", v.BaseCurrency)
}

func TestComputeValuation_ManualWithoutCurrencyUsesBase(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{Name: "Flat", Symbol: "Flat", Quantity: 1, PriceSource: models.PriceSourceManual, ManualPrice: ptr(30000000)},
	}}
	prices := &mockPrices{quotes: &models.PriceQuotes{}}
	conv := &mockConverter{base: "JPY"}

	svc := NewService(holdings, prices, conv, common.FXErrorAbort, common.NewSilentLogger())
	v, err := svc.ComputeValuation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30000000.0, v.TotalValue)
}

func TestComputeValuation_NonPositivePriceExcluded(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{Name: "Zero", Symbol: "Z", Quantity: 1, PriceSource: models.PriceSourceManual, ManualPrice: ptr(0)},
		{Name: "NoPrice", Symbol: "N", Quantity: 1, PriceSource: models.PriceSourceManual},
	}}
	svc := NewService(holdings, &mockPrices{quotes: &models.PriceQuotes{}}, &mockConverter{base: "USD"}, "", common.NewSilentLogger())

	v, err := svc.ComputeValuation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.TotalValue)
	assert.Empty(t, v.ByAsset)
}

func TestComputeValuation_FXFailurePolicy(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{Name: "Apple", Symbol: "AAPL", Quantity: 1, PriceSource: models.PriceSourceYahoo},
		{Name: "Exotic", Symbol: "EXO", Quantity: 1, PriceSource: models.PriceSourceYahoo, Currency: "XYZ"},
	}}
	prices := &mockPrices{quotes: &models.PriceQuotes{Market: map[string]float64{"AAPL": 100, "EXO": 5}}}
	conv := &mockConverter{base: "USD"}

	abort := NewService(holdings, prices, conv, common.FXErrorAbort, common.NewSilentLogger())
	_, err := abort.ComputeValuation(context.Background())
	assert.True(t, errors.Is(err, common.ErrRateUnavailable))

	skip := NewService(holdings, prices, conv, common.FXErrorSkip, common.NewSilentLogger())
	v, err := skip.ComputeValuation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.TotalValue)
	require.Len(t, v.Skipped, 1)
	assert.Equal(t, "EXO", v.Skipped[0].Symbol)
}

func TestComputeValuation_PriceFailure(t *testing.T) {
	svc := NewService(&mockHoldings{}, &mockPrices{err: common.ErrUpstream}, &mockConverter{base: "USD"}, "", common.NewSilentLogger())
	_, err := svc.ComputeValuation(context.Background())
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestComputeValuation_NonPositiveQuantityExcluded(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{ID: "h1", Name: "Apple", Symbol: "AAPL", Quantity: 2, PriceSource: models.PriceSourceYahoo},
		{ID: "h2", Name: "Microsoft", Symbol: "MSFT", Quantity: -1, PriceSource: models.PriceSourceYahoo},
		{ID: "h3", Name: "Google", Symbol: "GOOG", Quantity: 0, PriceSource: models.PriceSourceYahoo},
		{ID: "h4", Symbol: "AMZN", Quantity: 1, PriceSource: models.PriceSourceYahoo},
	}}
	prices := &mockPrices{quotes: &models.PriceQuotes{
		Market: map[string]float64{"AAPL": 150, "MSFT": 100, "GOOG": 170, "AMZN": 180},
	}}

	svc := NewService(holdings, prices, &mockConverter{base: "USD"}, common.FXErrorAbort, common.NewSilentLogger())
	v, err := svc.ComputeValuation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300.0, v.TotalValue)
	require.Len(t, v.ByAsset, 1)
	assert.Equal(t, "AAPL", v.ByAsset[0].Symbol)
	assert.Empty(t, v.Skipped)
}

func TestComputeValuation_CryptoQuotedInBase(t *testing.T) {
	holdings := &mockHoldings{holdings: []*models.Holding{
		{Name: "Bitcoin", Symbol: "BTC", PriceID: "bitcoin", Quantity: 0.5, PriceSource: models.PriceSourceCoinGecko, Currency: "USD"},
		{Name: "Toyota", Symbol: "7203.T", Quantity: 10, PriceSource: models.PriceSourceYahoo, Currency: "JPY"},
	}}
	prices := &mockPrices{quotes: &models.PriceQuotes{
		Market: map[string]float64{"7203.T": 3000},
		Crypto: map[string]float64{"bitcoin": 9000000},
	}}
	conv := &mockConverter{base: "JPY", rates: map[string]float64{"USD": 150}}

	svc := NewService(holdings, prices, conv, common.FXErrorAbort, common.NewSilentLogger())
	v, err := svc.ComputeValuation(context.Background())
	require.NoError(t, err)

	// Crypto prices are already in the base currency; the holding's own
	// currency field does not trigger a conversion.
	assert.Equal(t, 0, conv.toBaseCalls)
	assert.Equal(t, 4530000.0, v.TotalValue)
	require.Len(t, v.ByAsset, 2)
	assert.Equal(t, "Bitcoin", v.ByAsset[0].Name)
	assert.Equal(t, 4500000.0, v.ByAsset[0].Value)
	assert.Equal(t, "JPY", v.BaseCurrency)
}
