package storage

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"flashmeet/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	// one connection so the in-memory database is shared
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Meetup{}, &models.ChatMessage{}, &models.PushToken{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testMeetup(id, creatorID string, meetingTime time.Time, status models.MeetupStatus) *models.Meetup {
	return &models.Meetup{
		ID:             id,
		CreatorID:      creatorID,
		Category:       models.CategoryA,
		LocationText:   "Cafe corner",
		MeetingTime:    meetingTime,
		ParticipantIDs: models.StringList{creatorID},
		Status:         status,
	}
}

func TestCreateExclusive(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	first := testMeetup("m1", "alice", now.Add(30*time.Minute), models.StatusActive)
	if err := repo.CreateExclusive(first, now); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	second := testMeetup("m2", "alice", now.Add(time.Hour), models.StatusActive)
	if err := repo.CreateExclusive(second, now); !errors.Is(err, ErrCreatorHasActive) {
		t.Fatalf("expected ErrCreatorHasActive, got %v", err)
	}

	other := testMeetup("m3", "bob", now.Add(time.Hour), models.StatusActive)
	if err := repo.CreateExclusive(other, now); err != nil {
		t.Fatalf("different creator should not be blocked: %v", err)
	}
}

func TestCreateExclusiveIgnoresStaleRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	// a row the closer has not flipped yet, already past its window
	stale := testMeetup("m1", "alice", now.Add(-time.Hour), models.StatusActive)
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fresh := testMeetup("m2", "alice", now.Add(30*time.Minute), models.StatusActive)
	if err := repo.CreateExclusive(fresh, now); err != nil {
		t.Fatalf("stale row should not block creation: %v", err)
	}
}

func TestUpdateStatusIf(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	m := testMeetup("m1", "alice", now, models.StatusActive)
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	applied, err := repo.UpdateStatusIf("m1", models.StatusActive, models.StatusChatOpen)
	if err != nil || !applied {
		t.Fatalf("expected first transition to apply, got applied=%v err=%v", applied, err)
	}

	// a second writer with the same expectation loses silently
	applied, err = repo.UpdateStatusIf("m1", models.StatusActive, models.StatusChatOpen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("transition applied twice")
	}

	applied, err = repo.UpdateStatusIf("m1", models.StatusChatOpen, models.StatusExpired)
	if err != nil || !applied {
		t.Fatalf("expected close transition to apply, got applied=%v err=%v", applied, err)
	}

	got, err := repo.GetByID("m1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.StatusExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}
}

func TestGetByIDAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)

	got, err := repo.GetByID("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for absent meetup")
	}
}

func TestToggleParticipantInvolution(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	m := testMeetup("m1", "alice", now.Add(time.Hour), models.StatusActive)
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	updated, joined, err := repo.ToggleParticipant("m1", "bob")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !joined || !updated.ParticipantIDs.Contains("bob") {
		t.Fatalf("expected bob joined, got joined=%v participants=%v", joined, updated.ParticipantIDs)
	}

	updated, joined, err = repo.ToggleParticipant("m1", "bob")
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if joined || updated.ParticipantIDs.Contains("bob") {
		t.Fatalf("expected bob removed, got joined=%v participants=%v", joined, updated.ParticipantIDs)
	}
	if !updated.ParticipantIDs.Contains("alice") {
		t.Fatal("creator must survive the toggle round trip")
	}

	if _, _, err := repo.ToggleParticipant("missing", "bob"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestReportDedupAndThreshold(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	m := testMeetup("m1", "alice", now.Add(time.Hour), models.StatusActive)
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	outcome, err := repo.Report("m1", "r1")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if outcome.AlreadyReported || outcome.Deleted || outcome.ReportCount != 1 {
		t.Fatalf("unexpected outcome after first report: %+v", outcome)
	}

	outcome, err = repo.Report("m1", "r1")
	if err != nil {
		t.Fatalf("duplicate report failed: %v", err)
	}
	if !outcome.AlreadyReported || outcome.ReportCount != 1 {
		t.Fatalf("duplicate reporter must not grow the set: %+v", outcome)
	}

	if _, err := repo.Report("m1", "r2"); err != nil {
		t.Fatalf("second report failed: %v", err)
	}

	outcome, err = repo.Report("m1", "r3")
	if err != nil {
		t.Fatalf("third report failed: %v", err)
	}
	if !outcome.Deleted || outcome.ReportCount != 3 {
		t.Fatalf("third distinct reporter must delete: %+v", outcome)
	}

	got, err := repo.GetByID("m1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatal("meetup should be gone after threshold delete")
	}

	if _, err := repo.Report("m1", "r4"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("report on deleted meetup should be not found, got %v", err)
	}
}

func TestListVisible(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)
	now := time.Now()

	later := testMeetup("later", "alice", now.Add(2*time.Hour), models.StatusActive)
	sooner := testMeetup("sooner", "bob", now.Add(time.Hour), models.StatusChatOpen)
	expired := testMeetup("expired", "carol", now.Add(30*time.Minute), models.StatusExpired)
	for _, m := range []*models.Meetup{later, sooner, expired} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	visible, err := repo.ListVisible(now)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible meetups, got %d", len(visible))
	}
	if visible[0].ID != "sooner" || visible[1].ID != "later" {
		t.Fatalf("expected soonest first, got %s, %s", visible[0].ID, visible[1].ID)
	}
}

func TestDeleteByIDIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeetupRepository(db)

	m := testMeetup("m1", "alice", time.Now(), models.StatusExpired)
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	deleted, err := repo.DeleteByID("m1")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteByID("m1")
	if err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
	if deleted {
		t.Fatal("second delete should be a no-op")
	}
}
