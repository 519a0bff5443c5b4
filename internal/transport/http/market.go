package transporthttp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"papertrade/internal/market"
)

// MarketRouter exposes quote and historical-data endpoints.
type MarketRouter struct {
	market *market.Service
}

func NewMarketRouter(mkt *market.Service) *MarketRouter {
	return &MarketRouter{market: mkt}
}

func (r *MarketRouter) Register(group *gin.RouterGroup) {
	group.GET("/quote/:symbol", r.handleQuote)
	group.GET("/history/:symbol", r.handleHistory)
}

func (r *MarketRouter) handleQuote(c *gin.Context) {
	q, err := r.market.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (r *MarketRouter) handleHistory(c *gin.Context) {
	interval := c.DefaultQuery("interval", "1d")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 {
		limit = 30
	}
	if limit > 500 {
		limit = 500
	}
	candles, err := r.market.Candles(c.Request.Context(), c.Param("symbol"), interval, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":     c.Param("symbol"),
		"interval":   interval,
		"candles":    candles,
		"indicators": market.ComputeIndicators(candles),
	})
}
