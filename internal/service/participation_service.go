package service

import (
	"errors"

	"flashmeet/internal/lifecycle"

	"gorm.io/gorm"
)

// ParticipationResult describes the membership set after a toggle.
type ParticipationResult struct {
	Joined           bool `json:"joined"`
	ParticipantCount int  `json:"participantCount"`
	// CanToggle is advisory display state; the toggle itself is never
	// blocked by the window.
	CanToggle bool `json:"canToggleParticipation"`
}

// ToggleParticipation atomically adds the participant to the meetup's
// membership set, or removes them if already present. Toggling twice
// returns the set to its original state.
func ToggleParticipation(meetupID, participantID string) (*ParticipationResult, error) {
	if participantID == "" {
		return nil, ErrInvalidArgument
	}

	meetup, joined, err := meetupRepo.ToggleParticipant(meetupID, participantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ParticipationResult{
		Joined:           joined,
		ParticipantCount: meetup.ParticipantCount(),
		CanToggle:        lifecycle.CanToggleParticipation(meetup.MeetingTime, meetup.Category, timeNow()),
	}, nil
}
