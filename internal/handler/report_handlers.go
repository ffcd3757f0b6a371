package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flashmeet/internal/service"
)

type reportInput struct {
	ContentType string `json:"contentType" binding:"required"`
	ContentID   string `json:"contentId" binding:"required"`
	ParentID    string `json:"parentId"`
}

// ReportContent handles POST /api/report
func ReportContent(c *gin.Context) {
	var input reportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := service.ReportContent(input.ContentType, input.ContentID, input.ParentID, participantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
