package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	Name          string `gorm:"column:name"`
	Email         string `gorm:"column:email;uniqueIndex"`
	APIToken      string `gorm:"column:api_token;uniqueIndex"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }

// PortfolioModel is the ledger row. Holdings, history and watchlist are JSON
// columns; version backs the optimistic-concurrency check on settlement.
type PortfolioModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Owner         string         `gorm:"column:owner;uniqueIndex"`
	Cash          float64        `gorm:"column:cash"`
	Holdings      datatypes.JSON `gorm:"column:holdings;type:TEXT"`
	TotalValue    float64        `gorm:"column:total_value"`
	DailyReturn   float64        `gorm:"column:daily_return"`
	TotalReturn   float64        `gorm:"column:total_return"`
	History       datatypes.JSON `gorm:"column:history;type:TEXT"`
	Watchlist     datatypes.JSON `gorm:"column:watchlist;type:TEXT"`
	Version       int64          `gorm:"column:version"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
	UpdatedAt time.Time `gorm:"-"`
}

func (PortfolioModel) TableName() string { return "portfolios" }

type OrderModel struct {
	ID             string  `gorm:"column:id;primaryKey"`
	Owner          string  `gorm:"column:owner;index"`
	Side           string  `gorm:"column:side"`
	Symbol         string  `gorm:"column:symbol;index"`
	Quantity       float64 `gorm:"column:quantity"`
	Price          float64 `gorm:"column:price"`
	OrderType      string  `gorm:"column:order_type"`
	LimitPrice     float64 `gorm:"column:limit_price"`
	StopLoss       float64 `gorm:"column:stop_loss"`
	TakeProfit     float64 `gorm:"column:take_profit"`
	Status         string  `gorm:"column:status"`
	Fees           float64 `gorm:"column:fees"`
	TotalAmount    float64 `gorm:"column:total_amount"`
	ProfitLoss     float64 `gorm:"column:profit_loss"`
	ExecutedAtUnix int64   `gorm:"column:executed_at"`
	CreatedAtUnix  int64   `gorm:"column:created_at"`
}

func (OrderModel) TableName() string { return "orders" }

type ProgressModel struct {
	ID               int64          `gorm:"column:id;primaryKey"`
	Owner            string         `gorm:"column:owner;uniqueIndex"`
	XP               int            `gorm:"column:xp"`
	Level            int            `gorm:"column:level"`
	Points           int            `gorm:"column:points"`
	Badges           datatypes.JSON `gorm:"column:badges;type:TEXT"`
	TotalTrades      int            `gorm:"column:total_trades"`
	SuccessfulTrades int            `gorm:"column:successful_trades"`
	ProfitLoss       float64        `gorm:"column:profit_loss"`
	WinRate          float64        `gorm:"column:win_rate"`
	UpdatedAtUnix    int64          `gorm:"column:updated_at"`
}

func (ProgressModel) TableName() string { return "progress" }

type NotificationModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Owner         string `gorm:"column:owner;index"`
	Title         string `gorm:"column:title"`
	Body          string `gorm:"column:body"`
	Read          bool   `gorm:"column:is_read"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (NotificationModel) TableName() string { return "notifications" }
