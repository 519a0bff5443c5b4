package gamification

import (
	"context"
	"time"

	"papertrade/internal/logger"
	"papertrade/internal/store"
	"papertrade/internal/types"
)

// Level thresholds: index i holds the XP required to reach level i+1.
var levelXP = []int{0, 100, 300, 700, 1500, 3000, 6000, 12000}

// Service maintains per-user trading stats, xp/points and badges. It runs
// after settlement on a best-effort basis: failures are logged, never
// propagated back to the trade path.
type Service struct {
	store       store.Store
	tradeXP     int
	tradePoints int
}

func NewService(st store.Store, tradeXP, tradePoints int) *Service {
	if tradeXP <= 0 {
		tradeXP = 10
	}
	if tradePoints <= 0 {
		tradePoints = 5
	}
	return &Service{store: st, tradeXP: tradeXP, tradePoints: tradePoints}
}

// RecordTrade folds one completed order into the owner's progress record:
// trade counters, win rate, xp/points, level promotion and badge awards.
func (s *Service) RecordTrade(ctx context.Context, order *types.Order) {
	p, err := s.store.Progress(ctx, order.Owner)
	if err != nil {
		logger.Warnf("gamification: loading progress for %s failed: %v", order.Owner, err)
		return
	}
	stats := &p.TradingStats
	stats.TotalTrades++
	if order.ProfitLoss > 0 {
		stats.SuccessfulTrades++
	}
	stats.ProfitLoss += order.ProfitLoss
	stats.WinRate = float64(stats.SuccessfulTrades) / float64(stats.TotalTrades) * 100

	p.XP += s.tradeXP
	p.Points += s.tradePoints
	s.promote(p)
	s.award(p, stats)

	if err := s.store.SaveProgress(ctx, p); err != nil {
		logger.Warnf("gamification: saving progress for %s failed: %v", order.Owner, err)
	}
}

func (s *Service) promote(p *types.Progress) {
	level := 1
	for i, need := range levelXP {
		if p.XP >= need {
			level = i + 1
		}
	}
	if level > p.Level {
		logger.Infof("gamification: %s reached level %d", p.Owner, level)
		p.Level = level
	}
}

func (s *Service) award(p *types.Progress, stats *types.TradingStats) {
	if stats.TotalTrades == 1 {
		s.addBadge(p, "first-trade", "Executed your first trade")
	}
	if stats.TotalTrades == 100 {
		s.addBadge(p, "centurion", "Executed 100 trades")
	}
	if stats.SuccessfulTrades == 10 {
		s.addBadge(p, "hot-streak", "Ten profitable trades")
	}
}

func (s *Service) addBadge(p *types.Progress, name, description string) {
	for _, b := range p.Badges {
		if b.Name == name {
			return
		}
	}
	p.Badges = append(p.Badges, types.Badge{
		Name:        name,
		Description: description,
		EarnedAt:    time.Now(),
	})
}

// Progress exposes the stored record for the API layer.
func (s *Service) Progress(ctx context.Context, owner string) (*types.Progress, error) {
	return s.store.Progress(ctx, owner)
}

// Leaderboard returns the top users by points (xp breaks ties), with ranks
// assigned in order.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	entries, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
