package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"flashmeet/internal/crash"
	"flashmeet/internal/service"
)

type sendMessageInput struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage handles POST /api/meetups/:id/messages. The message is
// persisted first; live subscribers get it through the hub afterwards.
func SendMessage(c *gin.Context) {
	var input sendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := service.SendChatMessage(c.Param("id"), participantID(c), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	// publish outside the request lifetime so a client disconnect does
	// not cancel the fan-out
	if chatHub != nil {
		crash.SafeGoroutine("chat-publish", func() {
			chatHub.PublishMessage(context.Background(), msg)
		})
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages handles GET /api/meetups/:id/messages
func ListMessages(c *gin.Context) {
	messages, err := service.ListChatMessages(c.Param("id"), participantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
