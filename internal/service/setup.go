package service

import (
	"time"

	"flashmeet/internal/alert"
	"flashmeet/internal/config"
	"flashmeet/internal/crash"
	"flashmeet/internal/logger"
	"flashmeet/internal/push"
	"flashmeet/internal/storage"
)

// NotifyEnqueuer schedules a chat-open fan-out to run off the
// reconciler's critical path.
type NotifyEnqueuer interface {
	EnqueueChatOpenNotify(meetupID string) error
}

var (
	meetupRepo    *storage.MeetupRepository
	messageRepo   *storage.MessageRepository
	tokenRepo     *storage.TokenRepository
	globalConfig  *config.Config
	pushSender    push.Sender
	alertNotifier *alert.Notifier
	notifyQueue   NotifyEnqueuer

	// timeNow is swapped out in tests to pin the clock.
	timeNow = time.Now

	// runAsync detaches best-effort side effects (token pruning,
	// moderation alerts) from the caller; tests run them inline.
	runAsync = crash.SafeGoroutine
)

// Initialize initializes the service with configuration
func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// InitRepositories initializes the repositories backed by storage.DB
func InitRepositories() {
	if storage.DB == nil {
		logger.Warningf("Database not initialized, repositories unavailable")
		return
	}

	meetupRepo = storage.NewMeetupRepository(storage.DB)
	if err := meetupRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating Meetup table: %v", err)
	}

	messageRepo = storage.NewMessageRepository(storage.DB)
	if err := messageRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating ChatMessage table: %v", err)
	}

	tokenRepo = storage.NewTokenRepository(storage.DB)
	if err := tokenRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating PushToken table: %v", err)
	}
}

// SetPushSender wires the push gateway client used by the fan-out.
func SetPushSender(s push.Sender) {
	pushSender = s
}

// SetAlertNotifier wires the moderation alert channel.
func SetAlertNotifier(n *alert.Notifier) {
	alertNotifier = n
}

// SetNotifyQueue wires the background queue used by the window-opener.
func SetNotifyQueue(q NotifyEnqueuer) {
	notifyQueue = q
}
