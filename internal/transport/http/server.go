package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"papertrade/internal/gamification"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/store"
	"papertrade/internal/stream"
	"papertrade/internal/trader"
)

// Server wires the REST API and the websocket endpoint onto one listener.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	router          *gin.Engine
}

// Config describes the server's dependencies.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Store           store.Store
	Engine          *trader.Engine
	Market          *market.Service
	Progress        *gamification.Service
	Hub             *stream.Hub
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Engine == nil || cfg.Market == nil {
		return nil, errors.New("store, engine and market service are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Hub != nil {
		router.GET("/ws", gin.WrapH(cfg.Hub))
	}

	api := router.Group("/api", authRequired(cfg.Store))
	NewTradingRouter(cfg.Engine).Register(api.Group("/trading"))
	NewMarketRouter(cfg.Market).Register(api.Group("/market"))
	if cfg.Progress != nil {
		NewAccountRouter(cfg.Progress, cfg.Store).Register(api.Group(""))
	}

	return &Server{
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          router,
	}, nil
}

// Handler exposes the assembled router (used by tests).
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
