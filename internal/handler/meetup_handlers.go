package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flashmeet/internal/lifecycle"
	"flashmeet/internal/models"
	"flashmeet/internal/service"
)

type createMeetupInput struct {
	Message      string    `json:"message"`
	LocationText string    `json:"locationText" binding:"required"`
	MeetingTime  time.Time `json:"meetingTime" binding:"required"`
	Category     string    `json:"category" binding:"required"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
}

// meetupView decorates a meetup with the derived window fields clients
// display. Derived values are a projection of the shared window math,
// never persisted.
type meetupView struct {
	*models.Meetup
	TimeUntilMeetSeconds   int64 `json:"timeUntilMeetSeconds"`
	ShouldBeOpen           bool  `json:"shouldBeOpen"`
	IsExpired              bool  `json:"isExpired"`
	CanToggleParticipation bool  `json:"canToggleParticipation"`
}

func newMeetupView(m *models.Meetup, now time.Time) meetupView {
	return meetupView{
		Meetup:                 m,
		TimeUntilMeetSeconds:   int64(lifecycle.TimeUntilMeet(m.MeetingTime, now).Seconds()),
		ShouldBeOpen:           lifecycle.ShouldBeOpen(m.MeetingTime, m.Category, now),
		IsExpired:              lifecycle.IsExpired(m.MeetingTime, m.Category, now),
		CanToggleParticipation: lifecycle.CanToggleParticipation(m.MeetingTime, m.Category, now),
	}
}

// CreateMeetup handles POST /api/meetups
func CreateMeetup(c *gin.Context) {
	var input createMeetupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meetup, err := service.CreateMeetup(service.CreateMeetupInput{
		CreatorID:    participantID(c),
		Message:      input.Message,
		LocationText: input.LocationText,
		MeetingTime:  input.MeetingTime,
		Category:     models.Category(input.Category),
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMeetupView(meetup, time.Now()))
}

// ListMeetups handles GET /api/meetups
func ListMeetups(c *gin.Context) {
	meetups, err := service.ListMeetups()
	if err != nil {
		respondError(c, err)
		return
	}
	now := time.Now()
	views := make([]meetupView, 0, len(meetups))
	for _, m := range meetups {
		views = append(views, newMeetupView(m, now))
	}
	c.JSON(http.StatusOK, gin.H{"meetups": views})
}

// DeleteMeetup handles DELETE /api/meetups/:id
func DeleteMeetup(c *gin.Context) {
	if err := service.DeleteMeetup(c.Param("id"), participantID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ToggleParticipation handles POST /api/meetups/:id/participation
func ToggleParticipation(c *gin.Context) {
	result, err := service.ToggleParticipation(c.Param("id"), participantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type applyStatusInput struct {
	Expected string `json:"expected" binding:"required"`
	Target   string `json:"target" binding:"required"`
}

// ApplyStatus handles POST /api/meetups/:id/status — the optimistic
// client-side transition write. It goes through the exact same
// conditional-write path the reconciler uses; a transition that no
// longer applies is reported as applied=false, not as an error.
func ApplyStatus(c *gin.Context) {
	var input applyStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := service.ApplyTransition(c.Param("id"),
		models.MeetupStatus(input.Expected), models.MeetupStatus(input.Target))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// NotifyOpen handles POST /api/meetups/:id/notify-open
func NotifyOpen(c *gin.Context) {
	success, failure, err := service.NotifyChatOpen(c.Request.Context(), c.Param("id"), participantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"successCount": success, "failureCount": failure})
}
