package transporthttp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"papertrade/internal/trader"
	"papertrade/internal/types"
)

// TradingRouter exposes trade execution, portfolio and watchlist endpoints.
type TradingRouter struct {
	engine *trader.Engine
	schema *jsonschema.Schema
}

func NewTradingRouter(engine *trader.Engine) *TradingRouter {
	return &TradingRouter{engine: engine, schema: compileTradeSchema()}
}

// Register mounts the trading routes under group.
func (r *TradingRouter) Register(group *gin.RouterGroup) {
	group.POST("/execute", r.handleExecute)
	group.GET("/portfolio", r.handlePortfolio)
	group.GET("/portfolio/chart", r.handlePortfolioChart)
	group.GET("/history", r.handleHistory)
	group.GET("/watchlist", r.handleWatchlist)
	group.POST("/watchlist", r.handleWatchlistAdd)
	group.DELETE("/watchlist/:symbol", r.handleWatchlistRemove)
}

type executeRequest struct {
	Type       string  `json:"type"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	OrderType  string  `json:"orderType"`
	LimitPrice float64 `json:"limitPrice"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
}

func (r *TradingRouter) handleExecute(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := validateTradeBody(r.schema, raw); err != nil {
		writeError(c, err)
		return
	}
	var req executeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(c, fmt.Errorf("%w: malformed JSON body", trader.ErrValidation))
		return
	}
	if req.OrderType == "" {
		req.OrderType = string(types.OrderTypeMarket)
	}
	user := currentUser(c)
	res, err := r.engine.Execute(c.Request.Context(), user, trader.Request{
		Owner:      user.ID,
		Side:       types.Side(req.Type),
		Symbol:     req.Symbol,
		Quantity:   req.Quantity,
		OrderType:  types.OrderType(req.OrderType),
		LimitPrice: req.LimitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":     res.Order,
		"portfolio": res.Portfolio,
	})
}

func (r *TradingRouter) handlePortfolio(c *gin.Context) {
	p, err := r.engine.PortfolioView(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *TradingRouter) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	orders, err := r.engine.History(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (r *TradingRouter) handleWatchlist(c *gin.Context) {
	entries, err := r.engine.Watchlist(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": entries})
}

func (r *TradingRouter) handleWatchlistAdd(c *gin.Context) {
	var req struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	items, err := r.engine.AddToWatchlist(c.Request.Context(), currentUser(c).ID, req.Symbol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

func (r *TradingRouter) handleWatchlistRemove(c *gin.Context) {
	items, err := r.engine.RemoveFromWatchlist(c.Request.Context(), currentUser(c).ID, c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}
