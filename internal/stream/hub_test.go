package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/market"
)

func newTestHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	provider := market.NewSimProviderFromCatalog([]market.CatalogEntry{
		{Symbol: "AAPL", BasePrice: 150, Volatility: 0.01},
		{Symbol: "TSLA", BasePrice: 300, Volatility: 0.02},
	})
	mkt, err := market.NewService(provider, time.Minute)
	require.NoError(t, err)
	t.Cleanup(mkt.Close)

	hub := NewHub(mkt, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSubscribedClientReceivesTicks(t *testing.T) {
	_, url, cancel := newTestHub(t)
	defer cancel()

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "symbols": []string{"AAPL"}}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type   string `json:"type"`
		Symbol string `json:"symbol"`
		Data   struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "stockUpdate", msg.Type)
	assert.Equal(t, "AAPL", msg.Symbol)
	assert.Greater(t, msg.Data.Price, 0.0)
}

func TestUnsubscribedClientGetsNothing(t *testing.T) {
	_, url, cancel := newTestHub(t)
	defer cancel()

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "symbols": []string{"TSLA"}}))

	other := dial(t, url)
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err) // deadline hit, no frames for a client with no subscriptions
}
