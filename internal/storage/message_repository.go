package storage

import (
	"errors"

	"flashmeet/internal/lifecycle"
	"flashmeet/internal/models"

	"gorm.io/gorm"
)

// ErrChatNotOpen is returned by AppendIfOpen when the parent meetup is
// not in the chatOpen state.
var ErrChatNotOpen = errors.New("chat room is not open")

// MessageRepository handles database operations for ChatMessage
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// MigrateTable ensures the ChatMessage table exists
func (r *MessageRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ChatMessage{})
}

// AppendIfOpen inserts a message after verifying, inside the same
// transaction, that the parent meetup is still chatOpen. The parent
// row is locked so the insert cannot race a closing transition.
func (r *MessageRepository) AppendIfOpen(msg *models.ChatMessage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var meetup models.Meetup
		if err := lockForUpdate(tx).Where("id = ?", msg.MeetupID).First(&meetup).Error; err != nil {
			return err
		}
		if meetup.Status != models.StatusChatOpen {
			return ErrChatNotOpen
		}
		return tx.Create(msg).Error
	})
}

// ListByMeetup returns the chat log ordered ascending by timestamp.
func (r *MessageRepository) ListByMeetup(meetupID string) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	result := r.db.Where("meetup_id = ?", meetupID).
		Order("timestamp ASC").
		Find(&msgs)
	return msgs, result.Error
}

// Report runs the moderation transaction against a single message,
// with the same dedup and threshold semantics as meetup reports.
func (r *MessageRepository) Report(meetupID, messageID, reporterID string) (models.ReportOutcome, error) {
	var outcome models.ReportOutcome
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var msg models.ChatMessage
		if err := lockForUpdate(tx).
			Where("id = ? AND meetup_id = ?", messageID, meetupID).
			First(&msg).Error; err != nil {
			return err
		}

		if msg.ReportedBy.Contains(reporterID) {
			outcome = models.ReportOutcome{AlreadyReported: true, ReportCount: len(msg.ReportedBy)}
			return nil
		}

		msg.ReportedBy = msg.ReportedBy.Add(reporterID)
		count := len(msg.ReportedBy)

		if count >= lifecycle.ReportDeleteThreshold {
			if err := tx.Where("id = ?", messageID).Delete(&models.ChatMessage{}).Error; err != nil {
				return err
			}
			outcome = models.ReportOutcome{Deleted: true, ReportCount: count}
			return nil
		}

		if err := tx.Model(&models.ChatMessage{}).Where("id = ?", messageID).
			Updates(map[string]interface{}{
				"reported_by":  msg.ReportedBy,
				"report_count": count,
			}).Error; err != nil {
			return err
		}
		outcome = models.ReportOutcome{Deleted: false, ReportCount: count}
		return nil
	})
	return outcome, err
}

// ListOrphanMeetupIDs returns the meetup ids of messages whose parent
// row no longer exists. Moderation and creator deletes remove only the
// meetup row; the garbage collector finds the stranded chat logs here.
func (r *MessageRepository) ListOrphanMeetupIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&models.ChatMessage{}).
		Distinct().
		Where("meetup_id NOT IN (?)", r.db.Model(&models.Meetup{}).Select("id")).
		Pluck("meetup_id", &ids).Error
	return ids, err
}

// DeleteByMeetup removes every message under a meetup in chunks
// bounded by the batch-write limit. Each chunk commits independently;
// a crash mid-sequence leaves a partial state the next garbage
// collector tick completes.
func (r *MessageRepository) DeleteByMeetup(meetupID string) (int64, error) {
	var total int64
	for {
		var ids []string
		if err := r.db.Model(&models.ChatMessage{}).
			Where("meetup_id = ?", meetupID).
			Limit(lifecycle.BatchSize).
			Pluck("id", &ids).Error; err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		result := r.db.Where("id IN ?", ids).Delete(&models.ChatMessage{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
		if len(ids) < lifecycle.BatchSize {
			return total, nil
		}
	}
}
