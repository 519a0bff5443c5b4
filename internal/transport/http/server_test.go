package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/gamification"
	"papertrade/internal/market"
	"papertrade/internal/store/gormstore"
	"papertrade/internal/trader"
	"papertrade/internal/types"
)

const testToken = "tok-alice"

type staticProvider struct {
	price float64
}

func (p staticProvider) Quote(_ context.Context, symbol string) (types.Quote, error) {
	return types.Quote{Symbol: symbol, Price: p.price, Timestamp: time.Now()}, nil
}

func (p staticProvider) Candles(_ context.Context, symbol, _ string, limit int) ([]types.Candle, error) {
	candles := make([]types.Candle, limit)
	now := time.Now().Unix()
	for i := range candles {
		candles[i] = types.Candle{
			Timestamp: now - int64(limit-i)*86400,
			Open:      p.price, High: p.price, Low: p.price, Close: p.price,
		}
	}
	return candles, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *gormstore.GormStore) {
	t.Helper()
	st, err := gormstore.NewGormStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.EnsureUser(context.Background(), types.User{
		ID:       "alice",
		Name:     "Alice",
		Email:    "alice@example.com",
		APIToken: testToken,
	}))

	mkt, err := market.NewService(staticProvider{price: 150}, time.Second)
	require.NoError(t, err)
	t.Cleanup(mkt.Close)

	engine := trader.NewEngine(st, mkt, trader.Options{StartingCash: 100000}, trader.Collaborators{})
	t.Cleanup(engine.Stop)

	srv, err := NewServer(Config{
		Store:    st,
		Engine:   engine,
		Market:   mkt,
		Progress: gamification.NewService(st, 10, 5),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodGet, "/api/trading/portfolio", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown token", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodGet, "/api/trading/portfolio", "nope", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestExecuteTrade(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
		"type":     "buy",
		"symbol":   "AAPL",
		"quantity": 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Order     types.Order     `json:"order"`
		Portfolio types.Portfolio `json:"portfolio"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, types.SideBuy, out.Order.Side)
	assert.Equal(t, types.OrderStatusCompleted, out.Order.Status)
	assert.InDelta(t, 150.0, out.Order.Price, 1e-9)
	assert.InDelta(t, 98500.0, out.Portfolio.Cash, 1e-6)
	require.Len(t, out.Portfolio.Holdings, 1)
	assert.Equal(t, "AAPL", out.Portfolio.Holdings[0].Symbol)
}

func TestExecuteTradeRejections(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("schema violation", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
			"type":     "hold",
			"symbol":   "AAPL",
			"quantity": 1,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	})

	t.Run("zero quantity", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
			"type":     "buy",
			"symbol":   "AAPL",
			"quantity": 0,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
			"type":     "buy",
			"symbol":   "AAPL",
			"quantity": 100000,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "insufficient")
	})

	t.Run("selling what is not held", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
			"type":     "sell",
			"symbol":   "MSFT",
			"quantity": 1,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPortfolioAndHistory(t *testing.T) {
	ts, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/trading/execute", testToken, map[string]any{
			"type":     "buy",
			"symbol":   fmt.Sprintf("SYM%d", i),
			"quantity": 1,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	t.Run("portfolio revalues holdings", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodGet, "/api/trading/portfolio", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var p types.Portfolio
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Len(t, p.Holdings, 3)
		assert.InDelta(t, 100000.0, p.Performance.TotalValue, 1e-6)
		assert.NotEmpty(t, p.Performance.History)
	})

	t.Run("history newest first", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodGet, "/api/trading/history?limit=2", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Orders []types.Order `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		require.Len(t, out.Orders, 2)
		assert.Equal(t, "SYM2", out.Orders[0].Symbol)
		assert.Equal(t, "SYM1", out.Orders[1].Symbol)
	})

	t.Run("chart renders html", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodGet, "/api/trading/portfolio/chart", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, string(body), "Portfolio Performance")
	})
}

func TestWatchlistEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/trading/watchlist", testToken, map[string]any{"symbol": "TSLA"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, ts, http.MethodGet, "/api/trading/watchlist", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Watchlist []struct {
			Symbol       string  `json:"symbol"`
			CurrentPrice float64 `json:"current_price"`
		} `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Watchlist, 1)
	assert.Equal(t, "TSLA", out.Watchlist[0].Symbol)
	assert.InDelta(t, 150.0, out.Watchlist[0].CurrentPrice, 1e-9)

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/trading/watchlist/TSLA", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, ts, http.MethodGet, "/api/trading/watchlist", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "TSLA")
}

func TestMarketEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("quote", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodGet, "/api/market/quote/AAPL", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var q types.Quote
		require.NoError(t, json.Unmarshal(body, &q))
		assert.Equal(t, "AAPL", q.Symbol)
		assert.InDelta(t, 150.0, q.Price, 1e-9)
	})

	t.Run("history with indicators", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodGet, "/api/market/history/AAPL?limit=30", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Candles    []types.Candle `json:"candles"`
			Indicators struct {
				SMA20 []float64 `json:"sma20"`
			} `json:"indicators"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Len(t, out.Candles, 30)
		assert.NotEmpty(t, out.Indicators.SMA20)
	})
}

func TestProgressEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/progress", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p types.Progress
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.XP)
}

func TestNotificationEndpoints(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	resp, body := doJSON(t, ts, http.MethodGet, "/api/notifications", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "notifications")

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/notifications/999/read", testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for i := 0; i < 2; i++ {
		require.NoError(t, st.InsertNotification(ctx, types.Notification{Owner: "alice", Title: "Trade Confirmation"}))
	}

	t.Run("mark all read", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPut, "/api/notifications/read-all", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list, err := st.Notifications(ctx, "alice", 10)
		require.NoError(t, err)
		for _, n := range list {
			assert.True(t, n.Read)
		}
	})

	t.Run("delete one", func(t *testing.T) {
		list, err := st.Notifications(ctx, "alice", 10)
		require.NoError(t, err)
		require.NotEmpty(t, list)

		resp, _ := doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/notifications/%d", list[0].ID), testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, ts, http.MethodDelete, "/api/notifications/999", testToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("clear all", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/api/notifications", testToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list, err := st.Notifications(ctx, "alice", 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, st.EnsureUser(ctx, types.User{ID: "bob", Name: "Bob", Email: "bob@example.com", APIToken: "tok-bob"}))
	seed := func(owner string, points int) {
		p, err := st.Progress(ctx, owner)
		require.NoError(t, err)
		p.Points = points
		require.NoError(t, st.SaveProgress(ctx, p))
	}
	seed("alice", 10)
	seed("bob", 25)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/leaderboard", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Leaderboard []types.LeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Leaderboard, 2)
	assert.Equal(t, 1, out.Leaderboard[0].Rank)
	assert.Equal(t, "bob", out.Leaderboard[0].Owner)
	assert.Equal(t, "Bob", out.Leaderboard[0].Name)
	assert.Equal(t, 2, out.Leaderboard[1].Rank)
	assert.Equal(t, "alice", out.Leaderboard[1].Owner)
}
