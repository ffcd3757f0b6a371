package models

import "time"

// ChatMessage is one entry of a meetup's append-only chat log.
// Messages exist only while the parent meetup exists; the garbage
// collector removes them together with the meetup.
type ChatMessage struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	MeetupID string `gorm:"index;not null;size:36" json:"meetupId"`
	AuthorID string `gorm:"not null;size:64" json:"authorId"`

	Text      string    `gorm:"size:2000" json:"text"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`

	ReportedBy  StringList `gorm:"type:text" json:"-"`
	ReportCount int        `json:"reportCount"`
}
