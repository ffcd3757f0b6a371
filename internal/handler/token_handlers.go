package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flashmeet/internal/service"
)

type registerTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken handles PUT /api/tokens
func RegisterToken(c *gin.Context) {
	var input registerTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := service.RegisterToken(participantID(c), input.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}
