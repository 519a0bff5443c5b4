package store

import (
	"context"
	"errors"

	"papertrade/internal/types"
)

var (
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict reports a lost optimistic-concurrency race on the
	// portfolio row. Settlement retries a bounded number of times on it.
	ErrVersionConflict = errors.New("portfolio version conflict")
)

// SettleFunc mutates a freshly loaded portfolio and returns the order to be
// persisted alongside it. Returning an error aborts the transaction with no
// state change.
type SettleFunc func(p *types.Portfolio) (*types.Order, error)

// Store is the persistence seam for the service.
type Store interface {
	// UserByToken resolves a bearer token to a user ID.
	UserByToken(ctx context.Context, token string) (types.User, error)
	// EnsureUser inserts the user if absent (provisioning/seed path).
	EnsureUser(ctx context.Context, u types.User) error

	// Portfolio loads the ledger for owner, creating a fresh one with the
	// given starting cash when none exists yet.
	Portfolio(ctx context.Context, owner string, startingCash float64) (*types.Portfolio, error)
	// SavePortfolio persists non-settlement portfolio changes (watchlist,
	// revaluation) under the same version check as settlement.
	SavePortfolio(ctx context.Context, p *types.Portfolio) error
	// SettleTrade loads the portfolio, applies fn, and persists the returned
	// order plus the mutated portfolio in one transaction guarded by the
	// version column. Order insert and ledger update are all-or-nothing.
	SettleTrade(ctx context.Context, owner string, startingCash float64, fn SettleFunc) (*types.Order, *types.Portfolio, error)

	// Orders returns the most recent orders for owner, newest first.
	Orders(ctx context.Context, owner string, limit int) ([]types.Order, error)

	// Progress loads (or initializes) the gamification record for owner.
	Progress(ctx context.Context, owner string) (*types.Progress, error)
	// SaveProgress persists the gamification record.
	SaveProgress(ctx context.Context, p *types.Progress) error
	// Leaderboard returns the top progress records ordered by points then xp.
	// Rank is left for the caller to assign.
	Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error)

	InsertNotification(ctx context.Context, n types.Notification) error
	Notifications(ctx context.Context, owner string, limit int) ([]types.Notification, error)
	MarkNotificationRead(ctx context.Context, owner string, id int64) error
	MarkAllNotificationsRead(ctx context.Context, owner string) error
	DeleteNotification(ctx context.Context, owner string, id int64) error
	ClearNotifications(ctx context.Context, owner string) error

	Close() error
}
