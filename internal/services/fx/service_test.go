package fx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
)

type mockFXClient struct {
	mu    sync.Mutex
	rates map[string]float64
	err   error
	calls int
}

func (m *mockFXClient) GetRate(ctx context.Context, from, to string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.rates[from+"_"+to], nil
}

func (m *mockFXClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestService(client *mockFXClient, base string) (*Service, *time.Time) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cache := NewRateCache(30 * time.Minute)
	cache.now = func() time.Time { return now }
	return NewService(client, cache, base, common.NewSilentLogger()), &now
}

func TestRate_SameCurrencyNoCall(t *testing.T) {
	client := &mockFXClient{}
	svc, _ := newTestService(client, "USD")

	rate, err := svc.Rate(context.Background(), "usd", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Equal(t, 0, client.callCount())
}

func TestRate_CachedWithinTTL(t *testing.T) {
	client := &mockFXClient{rates: map[string]float64{"JPY_USD": 0.0067}}
	svc, now := newTestService(client, "USD")
	ctx := context.Background()

	_, err := svc.Rate(ctx, "jpy", "usd")
	require.NoError(t, err)
	*now = now.Add(29 * time.Minute)
	_, err = svc.Rate(ctx, "JPY", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())

	*now = now.Add(2 * time.Minute)
	_, err = svc.Rate(ctx, "JPY", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, client.callCount(), "expired entry is refetched")
	assert.Equal(t, 1, svc.cache.Size())
}

func TestRate_Unavailable(t *testing.T) {
	client := &mockFXClient{rates: map[string]float64{}}
	svc, _ := newTestService(client, "USD")

	_, err := svc.Rate(context.Background(), "XYZ", "USD")
	assert.True(t, errors.Is(err, common.ErrRateUnavailable))
	assert.Equal(t, 0, svc.cache.Size(), "failures are not cached")
}

func TestRate_ClientErrorPropagates(t *testing.T) {
	client := &mockFXClient{err: common.ErrUpstream}
	svc, _ := newTestService(client, "USD")

	_, err := svc.Convert(context.Background(), 10, "EUR", "USD")
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestToBase_EmptyCurrencyMeansBase(t *testing.T) {
	client := &mockFXClient{rates: map[string]float64{"USD_JPY": 150}}
	svc, _ := newTestService(client, "jpy")
	ctx := context.Background()

	v, err := svc.ToBase(ctx, 1000, "")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	v, err = svc.ToBase(ctx, 2, "usd")
	require.NoError(t, err)
	assert.Equal(t, 300.0, v)
	assert.Equal(t, "JPY", svc.BaseCurrency())
}

func TestRateCache_Invalidate(t *testing.T) {
	c := NewRateCache(0)
	c.Put("EUR_USD", 1.1)
	c.Put("GBP_USD", 1.3)

	c.Invalidate("EUR_USD")
	_, ok := c.Get("EUR_USD")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Size())
}

func TestRate_ConcurrentCallers(t *testing.T) {
	client := &mockFXClient{rates: map[string]float64{"EUR_USD": 1.1}}
	svc, _ := newTestService(client, "USD")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := svc.Rate(context.Background(), "EUR", "USD")
			assert.NoError(t, err)
			assert.Equal(t, 1.1, rate)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, client.callCount(), 1)
}
