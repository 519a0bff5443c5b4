package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"papertrade/internal/types"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	price float64
	err   error
}

func (p *countingProvider) Quote(_ context.Context, symbol string) (types.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return types.Quote{}, p.err
	}
	return types.Quote{Symbol: symbol, Price: p.price, Timestamp: time.Now()}, nil
}

func (p *countingProvider) Candles(context.Context, string, string, int) ([]types.Candle, error) {
	return nil, nil
}

func TestServiceQuoteCaches(t *testing.T) {
	provider := &countingProvider{price: 150}
	svc, err := NewService(provider, time.Minute)
	assert.NoError(t, err)
	defer svc.Close()

	q1, err := svc.Quote(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, 150.0, q1.Price)

	// Ristretto admits writes asynchronously; give the buffered set a moment.
	time.Sleep(50 * time.Millisecond)

	q2, err := svc.Quote(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, q1.Price, q2.Price)
	assert.Equal(t, 1, provider.calls)
}

func TestServicePricesSkipsFailures(t *testing.T) {
	provider := &countingProvider{err: ErrQuoteUnavailable}
	svc, err := NewService(provider, time.Minute)
	assert.NoError(t, err)
	defer svc.Close()

	prices := svc.Prices(context.Background(), []string{"AAPL", "TSLA"})
	assert.Empty(t, prices)
}

func TestSimProviderWalksWithinBand(t *testing.T) {
	p := NewSimProviderFromCatalog([]CatalogEntry{
		{Symbol: "AAPL", BasePrice: 100, Volatility: 0.05},
	})
	for i := 0; i < 500; i++ {
		q, err := p.Quote(context.Background(), "AAPL")
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, q.Price, 50.0)
		assert.LessOrEqual(t, q.Price, 200.0)
	}

	_, err := p.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestSimProviderCandles(t *testing.T) {
	p := NewSimProviderFromCatalog([]CatalogEntry{
		{Symbol: "AAPL", BasePrice: 100, Volatility: 0.02},
	})
	candles, err := p.Candles(context.Background(), "AAPL", "1h", 40)
	assert.NoError(t, err)
	assert.Len(t, candles, 40)
	for i := 1; i < len(candles); i++ {
		assert.Greater(t, candles[i].Timestamp, candles[i-1].Timestamp)
	}

	set := ComputeIndicators(candles)
	assert.Len(t, set.SMA20, 40)
	assert.NotZero(t, set.SMA20[39])
	assert.Zero(t, set.SMA20[5])
}
