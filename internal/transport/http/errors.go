package transporthttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papertrade/internal/ledger"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/store"
	"papertrade/internal/trader"
)

// writeError maps domain errors onto HTTP statuses. Business-rule rejections
// go back verbatim; anything unexpected is logged and returned as a generic
// message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trader.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient holdings"})
	case errors.Is(err, market.ErrQuoteUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "quote unavailable"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Errorf("http: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
