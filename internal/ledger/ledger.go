package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/types"
)

// Business-rule rejections. Both abort settlement before any mutation.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// DefaultHistoryLimit bounds the performance history ring.
const DefaultHistoryLimit = 365

// Cost returns quantity*price plus fees, the total cash amount an order moves.
// Money arithmetic goes through decimal so repeated settlements do not
// accumulate binary-float drift in the stored balance.
func Cost(quantity, price, fees float64) float64 {
	q := decimal.NewFromFloat(quantity)
	p := decimal.NewFromFloat(price)
	f := decimal.NewFromFloat(fees)
	v, _ := q.Mul(p).Add(f).Float64()
	return v
}

// ApplyBuy debits cash and folds the purchase into the holding for symbol
// using the weighted-average-cost formula. It returns ErrInsufficientFunds,
// leaving the portfolio untouched, when the total cost exceeds cash.
func ApplyBuy(p *types.Portfolio, symbol string, quantity, price, fees float64, now time.Time) error {
	total := Cost(quantity, price, fees)
	if total > p.Cash {
		return ErrInsufficientFunds
	}
	cash, _ := decimal.NewFromFloat(p.Cash).Sub(decimal.NewFromFloat(total)).Float64()
	p.Cash = cash

	for i := range p.Holdings {
		h := &p.Holdings[i]
		if h.Symbol != symbol {
			continue
		}
		oldQty := decimal.NewFromFloat(h.Quantity)
		oldAvg := decimal.NewFromFloat(h.AverageCost)
		addQty := decimal.NewFromFloat(quantity)
		addCost := addQty.Mul(decimal.NewFromFloat(price))
		newQty := oldQty.Add(addQty)
		avg, _ := oldQty.Mul(oldAvg).Add(addCost).Div(newQty).Float64()
		h.Quantity, _ = newQty.Float64()
		h.AverageCost = avg
		h.LastUpdated = now
		return nil
	}
	p.Holdings = append(p.Holdings, types.Holding{
		Symbol:      symbol,
		Quantity:    quantity,
		AverageCost: price,
		LastUpdated: now,
	})
	return nil
}

// ApplySell credits cash and decrements the holding for symbol, removing the
// entry entirely when it reaches zero. The realized profit/loss against the
// prior average cost is returned. ErrInsufficientHoldings is returned, with no
// mutation, when the holding is missing or too small.
func ApplySell(p *types.Portfolio, symbol string, quantity, price, fees float64, now time.Time) (float64, error) {
	idx := -1
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol {
			idx = i
			break
		}
	}
	if idx < 0 || p.Holdings[idx].Quantity < quantity {
		return 0, ErrInsufficientHoldings
	}
	h := &p.Holdings[idx]

	pl, _ := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(h.AverageCost)).
		Mul(decimal.NewFromFloat(quantity)).
		Float64()

	total := Cost(quantity, price, -fees)
	cash, _ := decimal.NewFromFloat(p.Cash).Add(decimal.NewFromFloat(total)).Float64()
	p.Cash = cash

	rest, _ := decimal.NewFromFloat(h.Quantity).Sub(decimal.NewFromFloat(quantity)).Float64()
	if rest <= 0 {
		p.Holdings = append(p.Holdings[:idx], p.Holdings[idx+1:]...)
	} else {
		h.Quantity = rest
		h.LastUpdated = now
	}
	return pl, nil
}

// Revalue recomputes the portfolio's total value from current prices, falling
// back to each holding's average cost for symbols without a fresh quote, then
// appends one history point. History is FIFO-bounded: once past limit the
// oldest entry is dropped.
func Revalue(p *types.Portfolio, prices map[string]float64, startingCash float64, limit int, now time.Time) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	holdingsValue := decimal.Zero
	snaps := make([]types.HoldingSnapshot, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		price, ok := prices[h.Symbol]
		if !ok {
			price = h.AverageCost
		}
		v := decimal.NewFromFloat(h.Quantity).Mul(decimal.NewFromFloat(price))
		holdingsValue = holdingsValue.Add(v)
		value, _ := v.Float64()
		snaps = append(snaps, types.HoldingSnapshot{Symbol: h.Symbol, Quantity: h.Quantity, Value: value})
	}
	totalValue, _ := decimal.NewFromFloat(p.Cash).Add(holdingsValue).Float64()

	prev := p.Performance.TotalValue
	p.Performance.TotalValue = totalValue
	if startingCash > 0 {
		p.Performance.TotalReturn = (totalValue - startingCash) / startingCash * 100
	}
	if prev > 0 {
		p.Performance.DailyReturn = (totalValue - prev) / prev * 100
	}

	p.Performance.History = append(p.Performance.History, types.PerformancePoint{
		Timestamp: now,
		Value:     totalValue,
		Cash:      p.Cash,
		Holdings:  snaps,
	})
	if n := len(p.Performance.History); n > limit {
		p.Performance.History = p.Performance.History[n-limit:]
	}
	p.UpdatedAt = now
}
