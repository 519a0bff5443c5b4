package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"papertrade/internal/logger"
	"papertrade/internal/market"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from another origin in development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscribeMessage is the only client→server frame.
type subscribeMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// update is the server→client tick frame.
type update struct {
	Type   string     `json:"type"`
	Symbol string     `json:"symbol"`
	Data   updateData `json:"data"`
}

type updateData struct {
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols map[string]bool
	mu      sync.Mutex
}

func (c *client) subscribed(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbols[symbol]
}

func (c *client) subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		if s != "" {
			c.symbols[s] = true
		}
	}
}

// Hub pushes simulated price ticks to subscribed websocket clients on a fixed
// interval, one frame per (client, symbol) pair.
type Hub struct {
	market   *market.Service
	interval time.Duration

	mu      sync.Mutex
	clients map[*client]bool
}

func NewHub(mkt *market.Service, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Hub{market: mkt, interval: interval, clients: make(map[*client]bool)}
}

// ServeHTTP lets the hub mount directly on any router.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.HandleWS(w, r) }

// HandleWS upgrades the request and services the connection until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("stream: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16), symbols: make(map[string]bool)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	logger.Infof("stream: client connected (%s)", conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debugf("stream: bad client frame: %v", err)
			continue
		}
		if msg.Type == "subscribe" {
			c.subscribe(msg.Symbols)
		}
	}
}

func (h *Hub) writePump(c *client) {
	for raw := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
	logger.Infof("stream: client disconnected")
}

// Run drives the tick loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Hub) tick(ctx context.Context) {
	symbols := h.activeSymbols()
	if len(symbols) == 0 {
		return
	}
	for _, symbol := range symbols {
		q, err := h.market.Quote(ctx, symbol)
		if err != nil {
			logger.Debugf("stream: tick quote for %s failed: %v", symbol, err)
			continue
		}
		raw, err := json.Marshal(update{
			Type:   "stockUpdate",
			Symbol: symbol,
			Data: updateData{
				Price:     q.Price,
				Change:    q.Change,
				Volume:    q.Volume,
				Timestamp: q.Timestamp,
			},
		})
		if err != nil {
			continue
		}
		h.broadcast(symbol, raw)
	}
}

// activeSymbols unions every client's subscription set so each symbol is
// quoted once per tick regardless of subscriber count.
func (h *Hub) activeSymbols() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := make(map[string]bool)
	for c := range h.clients {
		c.mu.Lock()
		for s := range c.symbols {
			set[s] = true
		}
		c.mu.Unlock()
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (h *Hub) broadcast(symbol string, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.subscribed(symbol) {
			continue
		}
		select {
		case c.send <- raw:
		default:
			// Slow consumer: skip this frame rather than block the tick.
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.drop(c)
	}
}
