package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/energydesk/api/responses"
)

// ListMarketData returns the latest tick of every symbol
func (h *Handler) ListMarketData(c *gin.Context) {
	responses.Success(c, h.store.LatestMarketTicks(c.Request.Context()))
}

// GetMarketData returns the latest tick of one symbol
func (h *Handler) GetMarketData(c *gin.Context) {
	symbol := c.Param("symbol")
	tick, ok := h.store.LatestMarketTick(c.Request.Context(), symbol)
	if !ok {
		responses.NotFound(c, "no market data for "+symbol)
		return
	}
	responses.Success(c, tick)
}

// GetMarketHistory returns every stored tick of one symbol, oldest first
func (h *Handler) GetMarketHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	ticks := h.store.ListMarketTicks(c.Request.Context(), symbol)
	if len(ticks) == 0 {
		responses.NotFound(c, "no market data for "+symbol)
		return
	}
	responses.Success(c, ticks)
}
