package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"papertrade/internal/config"
	"papertrade/internal/gamification"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/notifier"
	"papertrade/internal/store"
	"papertrade/internal/store/gormstore"
	"papertrade/internal/stream"
	"papertrade/internal/trader"
	transporthttp "papertrade/internal/transport/http"
	"papertrade/internal/types"
)

// App wires the whole service together: store, market data, the trading
// engine and its collaborators, the websocket hub and the HTTP server.
type App struct {
	cfg    *config.Config
	store  store.Store
	market *market.Service
	engine *trader.Engine
	hub    *stream.Hub
	server *transporthttp.Server
}

// NewApp builds the dependency graph from configuration without starting
// anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	st, err := gormstore.NewGormStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	provider, err := buildProvider(cfg.Market)
	if err != nil {
		st.Close()
		return nil, err
	}
	mkt, err := market.NewService(provider, time.Duration(cfg.Market.QuoteTTLMs)*time.Millisecond)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building market service: %w", err)
	}

	progress := gamification.NewService(st, cfg.Gamification.TradeXP, cfg.Gamification.TradePoints)

	var external notifier.TextNotifier
	if cfg.Notifier.TelegramBotToken != "" && cfg.Notifier.TelegramChatID != "" {
		external = notifier.NewTelegram(cfg.Notifier.TelegramBotToken, cfg.Notifier.TelegramChatID)
		logger.Infof("app: telegram notifications enabled")
	}
	dispatcher := notifier.NewDispatcher(st, external)

	engine := trader.NewEngine(st, mkt, trader.Options{
		StartingCash: cfg.Trading.StartingCash,
		FeeRate:      cfg.Trading.FeeRate,
		HistoryLimit: cfg.Trading.HistoryLimit,
	}, trader.Collaborators{
		OnTrade: []func(ctx context.Context, user types.User, order *types.Order){
			func(ctx context.Context, user types.User, order *types.Order) {
				progress.RecordTrade(ctx, order)
			},
			dispatcher.TradeConfirmation,
		},
	})

	hub := stream.NewHub(mkt, time.Duration(cfg.Market.TickIntervalMs)*time.Millisecond)

	server, err := transporthttp.NewServer(transporthttp.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
		Store:           st,
		Engine:          engine,
		Market:          mkt,
		Progress:        progress,
		Hub:             hub,
	})
	if err != nil {
		st.Close()
		mkt.Close()
		return nil, err
	}

	return &App{
		cfg:    cfg,
		store:  st,
		market: mkt,
		engine: engine,
		hub:    hub,
		server: server,
	}, nil
}

func buildProvider(cfg config.MarketConfig) (market.Provider, error) {
	switch cfg.Provider {
	case "http":
		return market.NewHTTPProvider(
			cfg.BaseURL,
			cfg.APIKey,
			cfg.RatePerSec,
			time.Duration(cfg.QuoteTimeoutMs)*time.Millisecond,
		), nil
	case "sim":
		p, err := market.NewSimProvider(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("loading symbol catalog: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Provider)
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts the
// pieces down in dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Run(ctx)
	})
	group.Go(func() error {
		return a.hub.Run(ctx)
	})

	err := group.Wait()

	a.engine.Stop()
	a.market.Close()
	if cerr := a.store.Close(); cerr != nil {
		logger.Warnf("app: closing store: %v", cerr)
	}
	return err
}
