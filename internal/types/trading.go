package types

import (
	"time"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// Order is the immutable record of one executed trade request.
type Order struct {
	ID          string      `json:"id"`
	Owner       string      `json:"owner"`
	Side        Side        `json:"side"`
	Symbol      string      `json:"symbol"`
	Quantity    float64     `json:"quantity"`
	Price       float64     `json:"price"`
	OrderType   OrderType   `json:"order_type"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	StopLoss    float64     `json:"stop_loss,omitempty"`
	TakeProfit  float64     `json:"take_profit,omitempty"`
	Status      OrderStatus `json:"status"`
	Fees        float64     `json:"fees"`
	TotalAmount float64     `json:"total_amount"`
	ProfitLoss  float64     `json:"profit_loss"`
	ExecutedAt  time.Time   `json:"executed_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Holding is one position inside a portfolio: at most one entry per symbol.
type Holding struct {
	Symbol      string    `json:"symbol"`
	Quantity    float64   `json:"quantity"`
	AverageCost float64   `json:"average_cost"`
	LastUpdated time.Time `json:"last_updated"`
}

// HoldingSnapshot is the compact per-symbol view stored in performance history.
type HoldingSnapshot struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}

// PerformancePoint is one entry of the bounded performance history.
type PerformancePoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Cash      float64           `json:"cash"`
	Holdings  []HoldingSnapshot `json:"holdings"`
}

// Performance aggregates derived valuation metrics plus the history ring.
type Performance struct {
	TotalValue  float64            `json:"total_value"`
	DailyReturn float64            `json:"daily_return"`
	TotalReturn float64            `json:"total_return"`
	History     []PerformancePoint `json:"history,omitempty"`
}

// Portfolio is the per-user ledger of cash and holdings.
type Portfolio struct {
	Owner       string      `json:"owner"`
	Cash        float64     `json:"cash"`
	Holdings    []Holding   `json:"holdings"`
	Performance Performance `json:"performance"`
	Watchlist   []WatchItem `json:"watchlist,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// WatchItem is one watchlist entry.
type WatchItem struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// Quote is the externally supplied current price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Candle is one bar of historical market data.
type Candle struct {
	Timestamp int64   `json:"ts"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Notification is one in-app message for a user.
type Notification struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Progress is the gamification view for one user.
type Progress struct {
	Owner        string       `json:"owner"`
	XP           int          `json:"xp"`
	Level        int          `json:"level"`
	Points       int          `json:"points"`
	Badges       []Badge      `json:"badges"`
	TradingStats TradingStats `json:"trading_stats"`
}

// LeaderboardEntry is one ranked row of the points leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	Owner       string  `json:"owner"`
	Name        string  `json:"name,omitempty"`
	Level       int     `json:"level"`
	XP          int     `json:"xp"`
	Points      int     `json:"points"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
}

// Badge is a single earned badge.
type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

// TradingStats tracks per-user trade counters used for the win rate.
type TradingStats struct {
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	ProfitLoss       float64 `json:"profit_loss"`
	WinRate          float64 `json:"win_rate"`
}
