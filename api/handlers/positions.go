package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/api/responses"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// ListPositions returns a user's open positions
func (h *Handler) ListPositions(c *gin.Context) {
	responses.Success(c, h.store.ListPositions(c.Request.Context(), c.Param("userId")))
}

// CreatePosition opens a position and pushes it to the owner
func (h *Handler) CreatePosition(c *gin.Context) {
	var in models.NewPosition
	if err := c.ShouldBindJSON(&in); err != nil {
		responses.BadRequest(c, "invalid JSON body")
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		responses.FromError(c, err)
		return
	}

	pos, err := h.store.CreatePosition(c.Request.Context(), in)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	h.logger.Info("position created",
		zap.String("user_id", pos.UserID),
		zap.String("symbol", pos.Symbol),
		zap.String("position_id", pos.ID))

	h.pub.SendToUser(pos.UserID, ws.NewEvent(ws.EventPositionUpdate, pos))
	responses.Created(c, pos)
}
