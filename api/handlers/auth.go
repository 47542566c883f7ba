package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/energydesk/api/responses"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks a username and password and returns the user profile
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid JSON body")
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		responses.FromError(c, err)
		return
	}

	user, err := h.store.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.Success(c, gin.H{"user": user}, "Login successful")
}
