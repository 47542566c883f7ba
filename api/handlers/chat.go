package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/energydesk/api/responses"
)

type chatRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// ListChat returns the user's recent conversation, oldest first
func (h *Handler) ListChat(c *gin.Context) {
	responses.Success(c, h.store.ListChatMessages(c.Request.Context(), c.Param("userId"), queryLimit(c, 50)))
}

// PostChat sends a question to the assistant
func (h *Handler) PostChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid JSON body")
		return
	}
	ex, err := h.assistant.Send(c.Request.Context(), req.UserID, req.Content)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.Success(c, ex)
}
