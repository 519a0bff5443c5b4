package market

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"papertrade/internal/types"
)

// CatalogEntry seeds one simulated symbol.
type CatalogEntry struct {
	Symbol     string  `yaml:"symbol"`
	Name       string  `yaml:"name"`
	BasePrice  float64 `yaml:"base_price"`
	Volatility float64 `yaml:"volatility"`
}

type catalogFile struct {
	Symbols []CatalogEntry `yaml:"symbols"`
}

// SimProvider produces quotes as a bounded random walk over a fixed symbol
// catalog. Unknown symbols are rejected the same way a real quote API would.
type SimProvider struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entries map[string]CatalogEntry
	last    map[string]types.Quote
}

// NewSimProvider loads the YAML symbol catalog at path.
func NewSimProvider(path string) (*SimProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol catalog failed: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing symbol catalog failed: %w", err)
	}
	if len(file.Symbols) == 0 {
		return nil, fmt.Errorf("symbol catalog %s is empty", path)
	}
	return NewSimProviderFromCatalog(file.Symbols), nil
}

func NewSimProviderFromCatalog(entries []CatalogEntry) *SimProvider {
	p := &SimProvider{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]CatalogEntry, len(entries)),
		last:    make(map[string]types.Quote, len(entries)),
	}
	for _, e := range entries {
		if e.Volatility <= 0 {
			e.Volatility = 0.01
		}
		p.entries[e.Symbol] = e
	}
	return p
}

// Symbols lists the catalog in no particular order.
func (p *SimProvider) Symbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.entries))
	for s := range p.entries {
		out = append(out, s)
	}
	return out
}

func (p *SimProvider) Quote(_ context.Context, symbol string) (types.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("%w: unknown symbol %s", ErrQuoteUnavailable, symbol)
	}
	prev, ok := p.last[symbol]
	price := entry.BasePrice
	if ok {
		price = prev.Price
	}
	step := price * entry.Volatility * (p.rng.Float64()*2 - 1)
	next := price + step
	// Keep the walk inside a sane band around the base price.
	if next < entry.BasePrice*0.5 {
		next = entry.BasePrice * 0.5
	}
	if next > entry.BasePrice*2 {
		next = entry.BasePrice * 2
	}
	q := types.Quote{
		Symbol:    symbol,
		Price:     next,
		Change:    next - price,
		Volume:    float64(1000 + p.rng.Intn(100000)),
		Timestamp: time.Now(),
	}
	p.last[symbol] = q
	return q, nil
}

func (p *SimProvider) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	q, err := p.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 30
	}
	step := intervalDuration(interval)

	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entries[symbol]
	// Walk backwards from the live price so the last candle closes on it.
	out := make([]types.Candle, limit)
	closePrice := q.Price
	ts := time.Now().Truncate(step)
	for i := limit - 1; i >= 0; i-- {
		drift := closePrice * entry.Volatility * (p.rng.Float64()*2 - 1)
		open := closePrice - drift
		high := open
		if closePrice > high {
			high = closePrice
		}
		low := open
		if closePrice < low {
			low = closePrice
		}
		high += closePrice * entry.Volatility * p.rng.Float64() * 0.5
		low -= closePrice * entry.Volatility * p.rng.Float64() * 0.5
		out[i] = types.Candle{
			Timestamp: ts.Add(-time.Duration(limit-1-i) * step).Unix(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    float64(1000 + p.rng.Intn(100000)),
		}
		closePrice = open
	}
	return out, nil
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d", "":
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
