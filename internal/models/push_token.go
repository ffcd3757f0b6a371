package models

import "time"

// PushToken maps a participant to their current push-delivery token.
// At most one token per participant: refreshes overwrite, confirmed
// delivery failures remove the row.
type PushToken struct {
	ParticipantID string    `gorm:"primaryKey;size:64" json:"participantId"`
	Token         string    `gorm:"size:255;not null" json:"token"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
