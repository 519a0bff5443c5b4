package market

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/errgroup"

	"papertrade/internal/logger"
	"papertrade/internal/types"
)

// Service fronts a quote Provider with a process-wide TTL cache. All request
// handlers and the settlement engine share one Service so a burst of traffic
// does not fan out into a burst of provider calls.
type Service struct {
	provider Provider
	cache    *ristretto.Cache
	ttl      time.Duration
}

func NewService(provider Provider, ttl time.Duration) (*Service, error) {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Service{provider: provider, cache: cache, ttl: ttl}, nil
}

// Quote returns the cached quote for symbol, refreshing it from the provider
// once the TTL lapses.
func (s *Service) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	if v, ok := s.cache.Get(symbol); ok {
		if q, ok := v.(types.Quote); ok {
			return q, nil
		}
	}
	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return types.Quote{}, err
	}
	s.cache.SetWithTTL(symbol, q, 1, s.ttl)
	return q, nil
}

// Prices fetches quotes for a set of symbols concurrently and returns a
// symbol→price map. Symbols whose quote fails are simply absent; callers fall
// back to average cost, so a flaky provider degrades valuation instead of
// failing it.
func (s *Service) Prices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			q, err := s.Quote(ctx, symbol)
			if err != nil {
				logger.Debugf("price lookup for %s failed: %v", symbol, err)
				return nil
			}
			mu.Lock()
			out[symbol] = q.Price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Candles proxies historical data through to the provider.
func (s *Service) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	return s.provider.Candles(ctx, symbol, interval, limit)
}

// Close releases the cache.
func (s *Service) Close() {
	s.cache.Close()
}
