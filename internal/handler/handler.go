package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flashmeet/internal/chat"
	"flashmeet/internal/config"
	"flashmeet/internal/logger"
	"flashmeet/internal/service"
)

var (
	globalConfig *config.Config
	chatHub      *chat.Hub
)

// Initialize initializes the handler with configuration
func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// NewRouter builds the HTTP surface: callable RPCs under /api plus the
// websocket subscription endpoint.
func NewRouter(hub *chat.Hub) *gin.Engine {
	chatHub = hub
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", Auth())
	{
		api.POST("/meetups", CreateMeetup)
		api.GET("/meetups", ListMeetups)
		api.DELETE("/meetups/:id", DeleteMeetup)
		api.POST("/meetups/:id/participation", ToggleParticipation)
		api.POST("/meetups/:id/status", ApplyStatus)
		api.POST("/meetups/:id/notify-open", NotifyOpen)
		api.GET("/meetups/:id/messages", ListMessages)
		api.POST("/meetups/:id/messages", SendMessage)
		api.POST("/report", ReportContent)
		api.PUT("/tokens", RegisterToken)
		api.GET("/ws/meetups/:id", SubscribeChat(hub))
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// respondError maps service errors onto HTTP status codes. Unknown
// errors are logged with context and surfaced as a generic internal
// failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrTooSoon):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrActiveExists), errors.Is(err, service.ErrChatClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Errorf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
