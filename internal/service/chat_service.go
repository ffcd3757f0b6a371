package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"flashmeet/internal/models"
	"flashmeet/internal/storage"

	"gorm.io/gorm"
)

const maxChatMessageLen = 500

// SendChatMessage appends a message to a meetup's chat log. The parent
// must be in chatOpen and the author must be a participant.
func SendChatMessage(meetupID, authorID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(text) > maxChatMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, maxChatMessageLen)
	}

	meetup, err := GetMeetup(meetupID)
	if err != nil {
		return nil, err
	}
	if !meetup.ParticipantIDs.Contains(authorID) {
		return nil, ErrPermissionDenied
	}

	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		MeetupID:  meetupID,
		AuthorID:  authorID,
		Text:      text,
		Timestamp: timeNow(),
	}

	if err := messageRepo.AppendIfOpen(msg); err != nil {
		switch {
		case errors.Is(err, storage.ErrChatNotOpen):
			return nil, ErrChatClosed
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

// ListChatMessages returns a meetup's chat log in timestamp order.
// Only participants may read it.
func ListChatMessages(meetupID, callerID string) ([]*models.ChatMessage, error) {
	meetup, err := GetMeetup(meetupID)
	if err != nil {
		return nil, err
	}
	if !meetup.ParticipantIDs.Contains(callerID) {
		return nil, ErrPermissionDenied
	}
	return messageRepo.ListByMeetup(meetupID)
}
