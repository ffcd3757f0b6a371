package models

import "time"

// MeetupStatus is the persisted lifecycle state of a meetup. The hard
// terminal state is record absence; "expired" is a soft terminal kept
// for display until the garbage collector removes the row.
type MeetupStatus string

const (
	StatusActive   MeetupStatus = "active"
	StatusChatOpen MeetupStatus = "chatOpen"
	StatusExpired  MeetupStatus = "expired"
)

// Category selects the open/close offset pair around the meeting time.
type Category string

const (
	// CategoryA opens the chat 5 minutes before the meeting time and
	// closes it 5 minutes after.
	CategoryA Category = "A"
	// CategoryB uses a 10 minute window on both sides.
	CategoryB Category = "B"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryA || c == CategoryB
}

// Meetup is the root entity of the lifecycle. Status is mutated only
// through the conditional transition write; participants only through
// the participation register; reporters only through the moderation
// transaction.
type Meetup struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	CreatorID string `gorm:"index;not null;size:64" json:"creatorId"`

	Category     Category `gorm:"size:4;not null" json:"category"`
	Message      string   `gorm:"size:400" json:"message"`
	LocationText string   `gorm:"size:200" json:"locationText"`

	MeetingTime time.Time `gorm:"index;not null" json:"meetingTime"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	ParticipantIDs StringList   `gorm:"type:text" json:"participantIds"`
	Status         MeetupStatus `gorm:"index;size:16;not null" json:"status"`

	ReportedBy  StringList `gorm:"type:text" json:"-"`
	ReportCount int        `json:"reportCount"`
}

// ParticipantCount returns the size of the membership set.
func (m *Meetup) ParticipantCount() int {
	return len(m.ParticipantIDs)
}

// ReportOutcome is the result of a moderation report transaction.
type ReportOutcome struct {
	AlreadyReported bool `json:"alreadyReported"`
	Deleted         bool `json:"deleted"`
	ReportCount     int  `json:"reportCount"`
}
