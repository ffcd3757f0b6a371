// Package lifecycle holds the pure time-window arithmetic shared by
// every evaluator of meetup state: the HTTP handlers, the chat hub and
// the reconciler jobs all call these functions with their own "now".
// The inequalities are deliberate and must not be loosened; the
// reconciler and optimistic clients stay consistent only because they
// compute the exact same predicates.
package lifecycle

import (
	"time"

	"flashmeet/internal/models"
)

const (
	// openOffsetA/closeOffsetA bound category A's chat window.
	openOffsetA  = 5 * time.Minute
	closeOffsetA = 5 * time.Minute

	// openOffsetB/closeOffsetB bound category B's chat window.
	openOffsetB  = 10 * time.Minute
	closeOffsetB = 10 * time.Minute

	// MaxOpenOffset is the largest open offset across categories. The
	// window-opener pre-filters its scan with this bound before
	// re-checking each record with its own category offsets.
	MaxOpenOffset = openOffsetB

	// MinCloseOffset is the smallest close offset across categories,
	// used the same way by the window-closer scan.
	MinCloseOffset = closeOffsetA

	// CleanupBuffer is how far past the meeting time a meetup must be
	// before the garbage collector touches it. Generous on purpose so
	// collection never races live readers of a just-expired room.
	CleanupBuffer = time.Hour

	// ReportDeleteThreshold is the number of distinct reporters that
	// deletes a piece of content.
	ReportDeleteThreshold = 3

	// BatchSize caps one atomic batch write against the store.
	BatchSize = 500

	// MinLeadTime is the minimum distance of the meeting time from now
	// at creation.
	MinLeadTime = 5 * time.Minute

	// ListingValidity is the display window for meetups after creation.
	ListingValidity = 24 * time.Hour
)

// Offsets returns the open and close offsets for a category. Unknown
// categories fall back to category A's window.
func Offsets(c models.Category) (open, close time.Duration) {
	if c == models.CategoryB {
		return openOffsetB, closeOffsetB
	}
	return openOffsetA, closeOffsetA
}

// TimeUntilMeet is the signed duration from now to the meeting time.
func TimeUntilMeet(meetingTime, now time.Time) time.Duration {
	return meetingTime.Sub(now)
}

// ShouldBeOpen reports whether now lies inside the chat window
// [meetingTime-open, meetingTime+close].
func ShouldBeOpen(meetingTime time.Time, c models.Category, now time.Time) bool {
	open, close := Offsets(c)
	until := TimeUntilMeet(meetingTime, now)
	return until <= open && until >= -close
}

// IsExpired reports whether now is strictly past the chat window.
func IsExpired(meetingTime time.Time, c models.Category, now time.Time) bool {
	_, close := Offsets(c)
	return TimeUntilMeet(meetingTime, now) < -close
}

// CanToggleParticipation reports whether the membership set may still
// change. Participation locks the moment the open window begins.
func CanToggleParticipation(meetingTime time.Time, c models.Category, now time.Time) bool {
	open, _ := Offsets(c)
	return TimeUntilMeet(meetingTime, now) > open
}

// CloseTime is the instant the chat window ends.
func CloseTime(meetingTime time.Time, c models.Category) time.Time {
	_, close := Offsets(c)
	return meetingTime.Add(close)
}

// StatusFor computes the status a meetup should display at now. The
// result is advisory until committed through the conditional
// transition write.
func StatusFor(meetingTime time.Time, c models.Category, now time.Time) models.MeetupStatus {
	switch {
	case IsExpired(meetingTime, c, now):
		return models.StatusExpired
	case ShouldBeOpen(meetingTime, c, now):
		return models.StatusChatOpen
	default:
		return models.StatusActive
	}
}
