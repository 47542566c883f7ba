package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/energydesk/api/responses"
)

type activityStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=unread read acted"`
}

// ListActivity returns the user's activity feed, newest first
func (h *Handler) ListActivity(c *gin.Context) {
	responses.Success(c, h.store.ListActivity(c.Request.Context(), c.Param("userId"), queryLimit(c, 20)))
}

// UpdateActivity marks an activity record read, unread or acted on
func (h *Handler) UpdateActivity(c *gin.Context) {
	var req activityStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid JSON body")
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		responses.FromError(c, err)
		return
	}
	rec, err := h.store.UpdateActivityStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.Success(c, rec)
}
