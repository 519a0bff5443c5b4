package market

import (
	"context"
	"errors"

	"papertrade/internal/types"
)

// ErrQuoteUnavailable reports a collaborator failure fetching a quote. It is
// surfaced to HTTP callers as 502 and never mutates any ledger.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Provider supplies current prices and historical candles for symbols.
type Provider interface {
	Quote(ctx context.Context, symbol string) (types.Quote, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error)
}
