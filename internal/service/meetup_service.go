package service

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"time"

	"github.com/google/uuid"

	"flashmeet/internal/lifecycle"
	"flashmeet/internal/models"
	"flashmeet/internal/storage"

	"gorm.io/gorm"
)

const maxMeetupMessageLen = 100

// CreateMeetupInput carries the caller-provided fields of a new meetup.
type CreateMeetupInput struct {
	CreatorID    string
	Message      string
	LocationText string
	MeetingTime  time.Time
	Category     models.Category
	Latitude     float64
	Longitude    float64
}

// CreateMeetup validates and inserts a new meetup. The creator starts
// as the only participant and the one-active-meetup-per-creator rule
// is enforced inside the insert transaction.
func CreateMeetup(in CreateMeetupInput) (*models.Meetup, error) {
	if in.CreatorID == "" || in.LocationText == "" {
		return nil, fmt.Errorf("%w: creator and location are required", ErrInvalidArgument)
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, in.Category)
	}
	if utf8.RuneCountInString(in.Message) > maxMeetupMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, maxMeetupMessageLen)
	}

	now := timeNow()
	if in.MeetingTime.Sub(now) < lifecycle.MinLeadTime {
		return nil, ErrTooSoon
	}

	meetup := &models.Meetup{
		ID:             uuid.NewString(),
		CreatorID:      in.CreatorID,
		Category:       in.Category,
		Message:        in.Message,
		LocationText:   in.LocationText,
		MeetingTime:    in.MeetingTime,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		ParticipantIDs: models.StringList{in.CreatorID},
		Status:         models.StatusActive,
	}

	if err := meetupRepo.CreateExclusive(meetup, now); err != nil {
		if errors.Is(err, storage.ErrCreatorHasActive) {
			return nil, ErrActiveExists
		}
		return nil, err
	}
	return meetup, nil
}

// GetMeetup loads a meetup or returns ErrNotFound.
func GetMeetup(id string) (*models.Meetup, error) {
	meetup, err := meetupRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if meetup == nil {
		return nil, ErrNotFound
	}
	return meetup, nil
}

// ListMeetups returns meetups visible in the listing at the current
// time.
func ListMeetups() ([]*models.Meetup, error) {
	return meetupRepo.ListVisible(timeNow())
}

// DeleteMeetup removes a meetup on behalf of its creator. The chat log
// is left for the garbage collector's orphan sweep.
func DeleteMeetup(id, callerID string) error {
	meetup, err := GetMeetup(id)
	if err != nil {
		return err
	}
	if meetup.CreatorID != callerID {
		return ErrPermissionDenied
	}
	_, err = meetupRepo.DeleteByID(id)
	return err
}

// validTransitions are the committed status moves. Clients that never
// observed chatOpen may write active → expired directly.
var validTransitions = map[models.MeetupStatus]map[models.MeetupStatus]bool{
	models.StatusActive:   {models.StatusChatOpen: true, models.StatusExpired: true},
	models.StatusChatOpen: {models.StatusExpired: true},
}

// ApplyTransition is the single write path for status changes, shared
// by the optimistic client endpoint and the reconciler. The target
// must match what the window math computes right now, and the
// conditional write only lands if the stored status still equals the
// expected prior status. Returns whether the write took effect.
func ApplyTransition(id string, expected, target models.MeetupStatus) (bool, error) {
	if !validTransitions[expected][target] {
		return false, fmt.Errorf("%w: illegal transition %s -> %s", ErrInvalidArgument, expected, target)
	}

	meetup, err := meetupRepo.GetByID(id)
	if err != nil {
		return false, err
	}
	if meetup == nil {
		return false, ErrNotFound
	}

	// Untrusted callers cannot push a record somewhere the clock does
	// not agree with; recompute rather than trust the request.
	if lifecycle.StatusFor(meetup.MeetingTime, meetup.Category, timeNow()) != target {
		return false, nil
	}

	applied, err := meetupRepo.UpdateStatusIf(id, expected, target)
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	return applied, err
}
