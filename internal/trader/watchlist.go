package trader

import (
	"context"
	"fmt"
	"time"

	"papertrade/internal/types"
)

// WatchEntry is a watchlist row enriched with the current quote.
type WatchEntry struct {
	Symbol       string    `json:"symbol"`
	AddedAt      time.Time `json:"added_at"`
	CurrentPrice float64   `json:"current_price,omitempty"`
	Change       float64   `json:"change,omitempty"`
}

// AddToWatchlist appends symbol to the owner's watchlist if absent.
func (e *Engine) AddToWatchlist(ctx context.Context, owner, symbol string) ([]types.WatchItem, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: missing symbol", ErrValidation)
	}
	res, err := e.submit(ctx, owner, func(ctx context.Context) (*Result, error) {
		_, p, err := e.store.SettleTrade(ctx, owner, e.startingCash, func(p *types.Portfolio) (*types.Order, error) {
			for _, w := range p.Watchlist {
				if w.Symbol == symbol {
					return nil, nil
				}
			}
			p.Watchlist = append(p.Watchlist, types.WatchItem{Symbol: symbol, AddedAt: time.Now()})
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		return &Result{Portfolio: p}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Portfolio.Watchlist, nil
}

// RemoveFromWatchlist drops symbol from the owner's watchlist.
func (e *Engine) RemoveFromWatchlist(ctx context.Context, owner, symbol string) ([]types.WatchItem, error) {
	res, err := e.submit(ctx, owner, func(ctx context.Context) (*Result, error) {
		_, p, err := e.store.SettleTrade(ctx, owner, e.startingCash, func(p *types.Portfolio) (*types.Order, error) {
			kept := p.Watchlist[:0]
			for _, w := range p.Watchlist {
				if w.Symbol != symbol {
					kept = append(kept, w)
				}
			}
			p.Watchlist = kept
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		return &Result{Portfolio: p}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Portfolio.Watchlist, nil
}

// Watchlist returns the owner's watchlist with current prices attached.
// Quote failures leave the price fields zero instead of failing the listing.
func (e *Engine) Watchlist(ctx context.Context, owner string) ([]WatchEntry, error) {
	p, err := e.store.Portfolio(ctx, owner, e.startingCash)
	if err != nil {
		return nil, err
	}
	out := make([]WatchEntry, 0, len(p.Watchlist))
	for _, w := range p.Watchlist {
		entry := WatchEntry{Symbol: w.Symbol, AddedAt: w.AddedAt}
		if q, err := e.market.Quote(ctx, w.Symbol); err == nil {
			entry.CurrentPrice = q.Price
			entry.Change = q.Change
		}
		out = append(out, entry)
	}
	return out, nil
}
