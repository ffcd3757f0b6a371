package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"flashmeet/internal/chat"
	"flashmeet/internal/lifecycle"
	"flashmeet/internal/logger"
	"flashmeet/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// auth happens via the bearer token, not the origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeChat handles GET /api/ws/meetups/:id, upgrading the request
// to a websocket subscription on the meetup's chat room. Participants
// only, and only while the room is not past its close time.
func SubscribeChat(hub *chat.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetup, err := service.GetMeetup(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		caller := participantID(c)
		if !meetup.ParticipantIDs.Contains(caller) {
			respondError(c, service.ErrPermissionDenied)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warningf("Websocket upgrade failed for meetup %s: %v", meetup.ID, err)
			return
		}

		closeTime := lifecycle.CloseTime(meetup.MeetingTime, meetup.Category)
		client := chat.NewClient(hub, conn, meetup.ID, caller, closeTime)
		client.Serve()
	}
}
