package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"papertrade/internal/store"
	storemodel "papertrade/internal/store/model"
	"papertrade/internal/types"
)

// settleAttempts bounds the optimistic-concurrency retry loop.
const settleAttempts = 3

// GormStore implements store.Store on gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

// NewGormStore opens (and migrates) the SQLite database at path.
// Pass ":memory:" for an in-process test database.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	dsn := path
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	}
	// Connections come from the cgo-free driver; the _pragma DSN params above
	// are its syntax. Gorm only supplies the dialect on top.
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Dialector{Conn: conn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	models := []interface{}{
		&storemodel.UserModel{},
		&storemodel.PortfolioModel{},
		&storemodel.OrderModel{},
		&storemodel.ProgressModel{},
		&storemodel.NotificationModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for reads, low lock contention.
	// A second connection to :memory: would see a different database, so the
	// in-process case stays on one.
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &GormStore{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------- Users -------------------------

func (s *GormStore) UserByToken(ctx context.Context, token string) (types.User, error) {
	var m storemodel.UserModel
	err := s.db.WithContext(ctx).Where("api_token = ?", token).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.User{}, store.ErrNotFound
	}
	if err != nil {
		return types.User{}, err
	}
	return types.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		APIToken:  m.APIToken,
		CreatedAt: time.Unix(m.CreatedAtUnix, 0),
	}, nil
}

func (s *GormStore) EnsureUser(ctx context.Context, u types.User) error {
	now := time.Now().Unix()
	m := storemodel.UserModel{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		APIToken:      u.APIToken,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	var existing storemodel.UserModel
	err := s.db.WithContext(ctx).Where("id = ?", u.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// --------------------- Portfolios -------------------------

func (s *GormStore) Portfolio(ctx context.Context, owner string, startingCash float64) (*types.Portfolio, error) {
	var p *types.Portfolio
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, _, err := loadOrCreatePortfolio(tx, owner, startingCash)
		p = loaded
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func loadOrCreatePortfolio(tx *gorm.DB, owner string, startingCash float64) (*types.Portfolio, int64, error) {
	var m storemodel.PortfolioModel
	err := tx.Where("owner = ?", owner).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		m = storemodel.PortfolioModel{
			Owner:         owner,
			Cash:          startingCash,
			Holdings:      []byte("[]"),
			TotalValue:    startingCash,
			History:       []byte("[]"),
			Watchlist:     []byte("[]"),
			Version:       1,
			CreatedAtUnix: now.Unix(),
			UpdatedAtUnix: now.Unix(),
		}
		if err := tx.Create(&m).Error; err != nil {
			return nil, 0, err
		}
	} else if err != nil {
		return nil, 0, err
	}
	p, err := portfolioFromModel(&m)
	if err != nil {
		return nil, 0, err
	}
	return p, m.Version, nil
}

func portfolioFromModel(m *storemodel.PortfolioModel) (*types.Portfolio, error) {
	p := &types.Portfolio{
		Owner: m.Owner,
		Cash:  m.Cash,
		Performance: types.Performance{
			TotalValue:  m.TotalValue,
			DailyReturn: m.DailyReturn,
			TotalReturn: m.TotalReturn,
		},
		UpdatedAt: time.Unix(m.UpdatedAtUnix, 0),
	}
	if len(m.Holdings) > 0 {
		if err := json.Unmarshal(m.Holdings, &p.Holdings); err != nil {
			return nil, fmt.Errorf("decoding holdings for %s failed: %w", m.Owner, err)
		}
	}
	if len(m.History) > 0 {
		if err := json.Unmarshal(m.History, &p.Performance.History); err != nil {
			return nil, fmt.Errorf("decoding history for %s failed: %w", m.Owner, err)
		}
	}
	if len(m.Watchlist) > 0 {
		if err := json.Unmarshal(m.Watchlist, &p.Watchlist); err != nil {
			return nil, fmt.Errorf("decoding watchlist for %s failed: %w", m.Owner, err)
		}
	}
	return p, nil
}

func portfolioColumns(p *types.Portfolio, version int64, now time.Time) (map[string]interface{}, error) {
	holdings, err := json.Marshal(emptyAsSlice(p.Holdings))
	if err != nil {
		return nil, err
	}
	history, err := json.Marshal(emptyAsSlice(p.Performance.History))
	if err != nil {
		return nil, err
	}
	watchlist, err := json.Marshal(emptyAsSlice(p.Watchlist))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"cash":         p.Cash,
		"holdings":     holdings,
		"total_value":  p.Performance.TotalValue,
		"daily_return": p.Performance.DailyReturn,
		"total_return": p.Performance.TotalReturn,
		"history":      history,
		"watchlist":    watchlist,
		"version":      version + 1,
		"updated_at":   now.Unix(),
	}, nil
}

func emptyAsSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// writePortfolio persists the portfolio guarded by the version column. A zero
// RowsAffected means another writer got there first.
func writePortfolio(tx *gorm.DB, p *types.Portfolio, version int64, now time.Time) error {
	cols, err := portfolioColumns(p, version, now)
	if err != nil {
		return err
	}
	res := tx.Model(&storemodel.PortfolioModel{}).
		Where("owner = ? AND version = ?", p.Owner, version).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (s *GormStore) SavePortfolio(ctx context.Context, p *types.Portfolio) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m storemodel.PortfolioModel
		if err := tx.Where("owner = ?", p.Owner).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return writePortfolio(tx, p, m.Version, time.Now())
	})
}

// SettleTrade runs fn against the current portfolio and persists the returned
// order plus the mutated ledger atomically. A version conflict rolls the whole
// transaction back and retries with a fresh read, up to settleAttempts times.
func (s *GormStore) SettleTrade(ctx context.Context, owner string, startingCash float64, fn store.SettleFunc) (*types.Order, *types.Portfolio, error) {
	var lastErr error
	for attempt := 0; attempt < settleAttempts; attempt++ {
		var (
			order     *types.Order
			portfolio *types.Portfolio
		)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			p, version, err := loadOrCreatePortfolio(tx, owner, startingCash)
			if err != nil {
				return err
			}
			o, err := fn(p)
			if err != nil {
				return err
			}
			if o != nil {
				if err := tx.Create(orderToModel(o)).Error; err != nil {
					return err
				}
			}
			if err := writePortfolio(tx, p, version, time.Now()); err != nil {
				return err
			}
			order, portfolio = o, p
			return nil
		})
		if err == nil {
			return order, portfolio, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// --------------------- Orders -------------------------

// Order timestamps persist at nanosecond precision so "newest first" stays
// stable for orders settled within the same second.
func orderToModel(o *types.Order) *storemodel.OrderModel {
	return &storemodel.OrderModel{
		ID:             o.ID,
		Owner:          o.Owner,
		Side:           string(o.Side),
		Symbol:         o.Symbol,
		Quantity:       o.Quantity,
		Price:          o.Price,
		OrderType:      string(o.OrderType),
		LimitPrice:     o.LimitPrice,
		StopLoss:       o.StopLoss,
		TakeProfit:     o.TakeProfit,
		Status:         string(o.Status),
		Fees:           o.Fees,
		TotalAmount:    o.TotalAmount,
		ProfitLoss:     o.ProfitLoss,
		ExecutedAtUnix: o.ExecutedAt.UnixNano(),
		CreatedAtUnix:  o.CreatedAt.UnixNano(),
	}
}

func orderFromModel(m *storemodel.OrderModel) types.Order {
	return types.Order{
		ID:          m.ID,
		Owner:       m.Owner,
		Side:        types.Side(m.Side),
		Symbol:      m.Symbol,
		Quantity:    m.Quantity,
		Price:       m.Price,
		OrderType:   types.OrderType(m.OrderType),
		LimitPrice:  m.LimitPrice,
		StopLoss:    m.StopLoss,
		TakeProfit:  m.TakeProfit,
		Status:      types.OrderStatus(m.Status),
		Fees:        m.Fees,
		TotalAmount: m.TotalAmount,
		ProfitLoss:  m.ProfitLoss,
		ExecutedAt:  time.Unix(0, m.ExecutedAtUnix),
		CreatedAt:   time.Unix(0, m.CreatedAtUnix),
	}
}

func (s *GormStore) Orders(ctx context.Context, owner string, limit int) ([]types.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []storemodel.OrderModel
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(rows))
	for i := range rows {
		out = append(out, orderFromModel(&rows[i]))
	}
	return out, nil
}

// --------------------- Progress -------------------------

func (s *GormStore) Progress(ctx context.Context, owner string) (*types.Progress, error) {
	var m storemodel.ProgressModel
	err := s.db.WithContext(ctx).Where("owner = ?", owner).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &types.Progress{Owner: owner, Level: 1, Badges: []types.Badge{}}, nil
	}
	if err != nil {
		return nil, err
	}
	p := &types.Progress{
		Owner:  m.Owner,
		XP:     m.XP,
		Level:  m.Level,
		Points: m.Points,
		Badges: []types.Badge{},
		TradingStats: types.TradingStats{
			TotalTrades:      m.TotalTrades,
			SuccessfulTrades: m.SuccessfulTrades,
			ProfitLoss:       m.ProfitLoss,
			WinRate:          m.WinRate,
		},
	}
	if len(m.Badges) > 0 {
		if err := json.Unmarshal(m.Badges, &p.Badges); err != nil {
			return nil, fmt.Errorf("decoding badges for %s failed: %w", owner, err)
		}
	}
	return p, nil
}

func (s *GormStore) SaveProgress(ctx context.Context, p *types.Progress) error {
	badges, err := json.Marshal(emptyAsSlice(p.Badges))
	if err != nil {
		return err
	}
	m := storemodel.ProgressModel{
		Owner:            p.Owner,
		XP:               p.XP,
		Level:            p.Level,
		Points:           p.Points,
		Badges:           badges,
		TotalTrades:      p.TradingStats.TotalTrades,
		SuccessfulTrades: p.TradingStats.SuccessfulTrades,
		ProfitLoss:       p.TradingStats.ProfitLoss,
		WinRate:          p.TradingStats.WinRate,
		UpdatedAtUnix:    time.Now().Unix(),
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing storemodel.ProgressModel
		err := tx.Where("owner = ?", p.Owner).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&m).Error
		}
		if err != nil {
			return err
		}
		m.ID = existing.ID
		return tx.Save(&m).Error
	})
}

// leaderboardRow is the scan target for the progress/users join.
type leaderboardRow struct {
	Owner       string  `gorm:"column:owner"`
	Name        string  `gorm:"column:name"`
	Level       int     `gorm:"column:level"`
	XP          int     `gorm:"column:xp"`
	Points      int     `gorm:"column:points"`
	WinRate     float64 `gorm:"column:win_rate"`
	TotalTrades int     `gorm:"column:total_trades"`
}

func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []leaderboardRow
	err := s.db.WithContext(ctx).
		Table("progress").
		Select("progress.owner AS owner, users.name AS name, progress.level AS level, progress.xp AS xp, progress.points AS points, progress.win_rate AS win_rate, progress.total_trades AS total_trades").
		Joins("LEFT JOIN users ON users.id = progress.owner").
		Order("progress.points DESC, progress.xp DESC, progress.owner ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.LeaderboardEntry{
			Owner:       r.Owner,
			Name:        r.Name,
			Level:       r.Level,
			XP:          r.XP,
			Points:      r.Points,
			WinRate:     r.WinRate,
			TotalTrades: r.TotalTrades,
		})
	}
	return out, nil
}

// --------------------- Notifications -------------------------

func (s *GormStore) InsertNotification(ctx context.Context, n types.Notification) error {
	m := storemodel.NotificationModel{
		Owner:         n.Owner,
		Title:         n.Title,
		Body:          n.Body,
		Read:          n.Read,
		CreatedAtUnix: time.Now().Unix(),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *GormStore) Notifications(ctx context.Context, owner string, limit int) ([]types.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []storemodel.NotificationModel
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, types.Notification{
			ID:        m.ID,
			Owner:     m.Owner,
			Title:     m.Title,
			Body:      m.Body,
			Read:      m.Read,
			CreatedAt: time.Unix(m.CreatedAtUnix, 0),
		})
	}
	return out, nil
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, owner string, id int64) error {
	res := s.db.WithContext(ctx).
		Model(&storemodel.NotificationModel{}).
		Where("id = ? AND owner = ?", id, owner).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead is a no-op (not an error) for an empty inbox.
func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, owner string) error {
	return s.db.WithContext(ctx).
		Model(&storemodel.NotificationModel{}).
		Where("owner = ? AND is_read = ?", owner, false).
		Update("is_read", true).Error
}

func (s *GormStore) DeleteNotification(ctx context.Context, owner string, id int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		Delete(&storemodel.NotificationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearNotifications(ctx context.Context, owner string) error {
	return s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Delete(&storemodel.NotificationModel{}).Error
}
