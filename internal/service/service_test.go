package service

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"flashmeet/internal/config"
	"flashmeet/internal/crash"
	"flashmeet/internal/models"
	"flashmeet/internal/storage"
)

func setupTest(t *testing.T) {
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

	storage.DB = db
	globalConfig = &config.Config{}
	InitRepositories()

	pushSender = nil
	alertNotifier = nil
	notifyQueue = nil

	// side effects run inline so they cannot race test teardown
	runAsync = func(name string, fn func()) { fn() }

	t.Cleanup(func() {
		timeNow = time.Now
		runAsync = crash.SafeGoroutine
		pushSender = nil
		alertNotifier = nil
		notifyQueue = nil
		storage.DB = nil
	})
}

// pinClock freezes the service clock at the given instant.
func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	timeNow = func() time.Time { return at }
}

func seedMeetup(t *testing.T, m *models.Meetup) {
	t.Helper()
	if m.ParticipantIDs == nil {
		m.ParticipantIDs = models.StringList{m.CreatorID}
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.Category == "" {
		m.Category = models.CategoryA
	}
	if m.LocationText == "" {
		m.LocationText = "Cafe corner"
	}
	if err := storage.DB.Create(m).Error; err != nil {
		t.Fatalf("failed to seed meetup: %v", err)
	}
}

type fakeEnqueuer struct {
	ids []string
}

func (f *fakeEnqueuer) EnqueueChatOpenNotify(meetupID string) error {
	f.ids = append(f.ids, meetupID)
	return nil
}
