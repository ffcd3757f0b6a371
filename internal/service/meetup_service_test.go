package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"flashmeet/internal/models"
)

func TestCreateMeetupValidation(t *testing.T) {
	setupTest(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pinClock(t, now)

	valid := CreateMeetupInput{
		CreatorID:    "alice",
		LocationText: "Cafe corner",
		MeetingTime:  now.Add(30 * time.Minute),
		Category:     models.CategoryA,
	}

	cases := []struct {
		name    string
		mutate  func(in *CreateMeetupInput)
		wantErr error
	}{
		{"missing creator", func(in *CreateMeetupInput) { in.CreatorID = "" }, ErrInvalidArgument},
		{"missing location", func(in *CreateMeetupInput) { in.LocationText = "" }, ErrInvalidArgument},
		{"unknown category", func(in *CreateMeetupInput) { in.Category = "Z" }, ErrInvalidArgument},
		{"message too long", func(in *CreateMeetupInput) { in.Message = strings.Repeat("x", 101) }, ErrInvalidArgument},
		{"meeting too soon", func(in *CreateMeetupInput) { in.MeetingTime = now.Add(4 * time.Minute) }, ErrTooSoon},
		{"meeting in the past", func(in *CreateMeetupInput) { in.MeetingTime = now.Add(-time.Hour) }, ErrTooSoon},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if _, err := CreateMeetup(in); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// the boundary itself is allowed
	in := valid
	in.MeetingTime = now.Add(5 * time.Minute)
	if _, err := CreateMeetup(in); err != nil {
		t.Fatalf("exactly min lead time should be accepted: %v", err)
	}
}

func TestCreateMeetupStartsWithCreator(t *testing.T) {
	setupTest(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pinClock(t, now)

	meetup, err := CreateMeetup(CreateMeetupInput{
		CreatorID:    "alice",
		LocationText: "Cafe corner",
		MeetingTime:  now.Add(time.Hour),
		Category:     models.CategoryB,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if meetup.Status != models.StatusActive {
		t.Fatalf("expected active, got %s", meetup.Status)
	}
	if meetup.ParticipantCount() != 1 || !meetup.ParticipantIDs.Contains("alice") {
		t.Fatalf("creator must be the sole initial participant, got %v", meetup.ParticipantIDs)
	}
}

func TestCreateMeetupOnePerCreator(t *testing.T) {
	setupTest(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pinClock(t, now)

	in := CreateMeetupInput{
		CreatorID:    "alice",
		LocationText: "Cafe corner",
		MeetingTime:  now.Add(time.Hour),
		Category:     models.CategoryA,
	}
	if _, err := CreateMeetup(in); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := CreateMeetup(in); !errors.Is(err, ErrActiveExists) {
		t.Fatalf("expected ErrActiveExists, got %v", err)
	}

	in.CreatorID = "bob"
	if _, err := CreateMeetup(in); err != nil {
		t.Fatalf("other creator should not be blocked: %v", err)
	}
}

func TestDeleteMeetupCreatorOnly(t *testing.T) {
	setupTest(t)
	now := time.Now()
	seedMeetup(t, &models.Meetup{ID: "m1", CreatorID: "alice", MeetingTime: now.Add(time.Hour)})

	if err := DeleteMeetup("m1", "bob"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if err := DeleteMeetup("m1", "alice"); err != nil {
		t.Fatalf("creator delete failed: %v", err)
	}
	if _, err := GetMeetup("m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := DeleteMeetup("m1", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for second delete, got %v", err)
	}
}

func TestApplyTransitionIllegalPairs(t *testing.T) {
	setupTest(t)
	now := time.Now()
	seedMeetup(t, &models.Meetup{ID: "m1", CreatorID: "alice", MeetingTime: now.Add(time.Hour)})

	illegal := [][2]models.MeetupStatus{
		{models.StatusChatOpen, models.StatusActive},
		{models.StatusExpired, models.StatusActive},
		{models.StatusExpired, models.StatusChatOpen},
		{models.StatusActive, models.StatusActive},
	}
	for _, pair := range illegal {
		if _, err := ApplyTransition("m1", pair[0], pair[1]); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %s -> %s, got %v", pair[0], pair[1], err)
		}
	}
}

func TestApplyTransitionRecomputesWindow(t *testing.T) {
	setupTest(t)
	meetingTime := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	seedMeetup(t, &models.Meetup{ID: "m1", CreatorID: "alice", MeetingTime: meetingTime, Category: models.CategoryA})

	// too early for the client's claimed target
	pinClock(t, meetingTime.Add(-30*time.Minute))
	applied, err := ApplyTransition("m1", models.StatusActive, models.StatusChatOpen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("transition outside the window must not apply")
	}

	// inside the window
	pinClock(t, meetingTime.Add(-2*time.Minute))
	applied, err = ApplyTransition("m1", models.StatusActive, models.StatusChatOpen)
	if err != nil || !applied {
		t.Fatalf("expected transition to apply, got applied=%v err=%v", applied, err)
	}

	// replaying the same transition is a silent no-op
	applied, err = ApplyTransition("m1", models.StatusActive, models.StatusChatOpen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("replayed transition must not apply twice")
	}

	// past the close offset the expire transition lands
	pinClock(t, meetingTime.Add(10*time.Minute))
	applied, err = ApplyTransition("m1", models.StatusChatOpen, models.StatusExpired)
	if err != nil || !applied {
		t.Fatalf("expected expire to apply, got applied=%v err=%v", applied, err)
	}

	if _, err := ApplyTransition("missing", models.StatusActive, models.StatusChatOpen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleParticipation(t *testing.T) {
	setupTest(t)
	meetingTime := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pinClock(t, meetingTime.Add(-time.Hour))
	seedMeetup(t, &models.Meetup{ID: "m1", CreatorID: "alice", MeetingTime: meetingTime, Category: models.CategoryA})

	result, err := ToggleParticipation("m1", "bob")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !result.Joined || result.ParticipantCount != 2 || !result.CanToggle {
		t.Fatalf("unexpected result: %+v", result)
	}

	result, err = ToggleParticipation("m1", "bob")
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if result.Joined || result.ParticipantCount != 1 {
		t.Fatalf("toggle must be an involution: %+v", result)
	}

	// inside the window the toggle still lands, only the advisory flag flips
	pinClock(t, meetingTime.Add(-2*time.Minute))
	result, err = ToggleParticipation("m1", "carol")
	if err != nil {
		t.Fatalf("late toggle failed: %v", err)
	}
	if !result.Joined || result.CanToggle {
		t.Fatalf("unexpected late-toggle result: %+v", result)
	}

	if _, err := ToggleParticipation("missing", "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := ToggleParticipation("m1", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
