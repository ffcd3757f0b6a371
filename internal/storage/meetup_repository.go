package storage

import (
	"errors"
	"time"

	"flashmeet/internal/lifecycle"
	"flashmeet/internal/models"

	"gorm.io/gorm"
)

// ErrCreatorHasActive is returned by CreateExclusive when the creator
// already owns a meetup that has not yet left its window.
var ErrCreatorHasActive = errors.New("creator already has an active meetup")

// MeetupRepository handles database operations for Meetup
type MeetupRepository struct {
	db *gorm.DB
}

// NewMeetupRepository creates a new MeetupRepository
func NewMeetupRepository(db *gorm.DB) *MeetupRepository {
	return &MeetupRepository{db: db}
}

// MigrateTable ensures the Meetup table exists with the right schema
func (r *MeetupRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Meetup{})
}

// CreateExclusive inserts a meetup after verifying, inside one
// transaction, that the creator has no other live meetup. Existing
// rows for the creator are locked so two devices racing on creation
// cannot both pass the check.
func (r *MeetupRepository) CreateExclusive(meetup *models.Meetup, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing []*models.Meetup
		err := lockForUpdate(tx).
			Where("creator_id = ? AND status IN ?", meetup.CreatorID,
				[]models.MeetupStatus{models.StatusActive, models.StatusChatOpen}).
			Find(&existing).Error
		if err != nil {
			return err
		}
		for _, m := range existing {
			// A row the closer has not flipped yet may already be past
			// its window; only a genuinely live meetup blocks creation.
			if !lifecycle.IsExpired(m.MeetingTime, m.Category, now) {
				return ErrCreatorHasActive
			}
		}
		return tx.Create(meetup).Error
	})
}

// GetByID retrieves a meetup by id, returning (nil, nil) when absent
func (r *MeetupRepository) GetByID(id string) (*models.Meetup, error) {
	var meetup models.Meetup
	result := r.db.Where("id = ?", id).First(&meetup)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &meetup, nil
}

// UpdateStatusIf applies a status transition only if the stored status
// still equals the expected prior status. Returns whether the write
// took effect; a false result is not an error, it means another writer
// already applied the transition or the record moved on.
func (r *MeetupRepository) UpdateStatusIf(id string, expected, target models.MeetupStatus) (bool, error) {
	result := r.db.Model(&models.Meetup{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", target)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListVisible returns meetups shown in the listing: still active or in
// an open chat window, created within the validity period, soonest
// meeting time first.
func (r *MeetupRepository) ListVisible(now time.Time) ([]*models.Meetup, error) {
	var meetups []*models.Meetup
	result := r.db.
		Where("status IN ?", []models.MeetupStatus{models.StatusActive, models.StatusChatOpen}).
		Where("created_at > ?", now.Add(-lifecycle.ListingValidity)).
		Order("meeting_time ASC").
		Find(&meetups)
	return meetups, result.Error
}

// FindOpenCandidates returns active meetups whose meeting time is
// within the largest open offset from now. Callers re-check each
// record with its category-specific window before transitioning.
func (r *MeetupRepository) FindOpenCandidates(now time.Time) ([]*models.Meetup, error) {
	var meetups []*models.Meetup
	result := r.db.
		Where("status = ? AND meeting_time <= ?", models.StatusActive, now.Add(lifecycle.MaxOpenOffset)).
		Find(&meetups)
	return meetups, result.Error
}

// FindExpireCandidates returns chat-open meetups whose meeting time is
// at least the smallest close offset in the past.
func (r *MeetupRepository) FindExpireCandidates(now time.Time) ([]*models.Meetup, error) {
	var meetups []*models.Meetup
	result := r.db.
		Where("status = ? AND meeting_time <= ?", models.StatusChatOpen, now.Add(-lifecycle.MinCloseOffset)).
		Find(&meetups)
	return meetups, result.Error
}

// FindCleanupCandidates returns meetups of any status whose meeting
// time is past the cleanup buffer.
func (r *MeetupRepository) FindCleanupCandidates(now time.Time) ([]*models.Meetup, error) {
	var meetups []*models.Meetup
	result := r.db.
		Where("meeting_time <= ?", now.Add(-lifecycle.CleanupBuffer)).
		Find(&meetups)
	return meetups, result.Error
}

// DeleteByID removes a meetup row. Returns whether a row was deleted;
// deleting an already-absent meetup is a no-op, not an error.
func (r *MeetupRepository) DeleteByID(id string) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&models.Meetup{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ToggleParticipant atomically adds or removes a participant from the
// membership set. Returns the updated meetup and whether the
// participant is a member after the call.
func (r *MeetupRepository) ToggleParticipant(id, participantID string) (*models.Meetup, bool, error) {
	var meetup models.Meetup
	var joined bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("id = ?", id).First(&meetup).Error; err != nil {
			return err
		}
		if meetup.ParticipantIDs.Contains(participantID) {
			meetup.ParticipantIDs = meetup.ParticipantIDs.Remove(participantID)
			joined = false
		} else {
			meetup.ParticipantIDs = meetup.ParticipantIDs.Add(participantID)
			joined = true
		}
		return tx.Model(&models.Meetup{}).Where("id = ?", id).
			Update("participant_ids", meetup.ParticipantIDs).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &meetup, joined, nil
}

// Report runs the moderation transaction against a meetup: dedup by
// reporter, then either persist the grown set or delete the row once
// the threshold is reached. Two simultaneous reporters serialize on
// the row lock, so exactly one of them observes the threshold.
func (r *MeetupRepository) Report(id, reporterID string) (models.ReportOutcome, error) {
	var outcome models.ReportOutcome
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var meetup models.Meetup
		if err := lockForUpdate(tx).Where("id = ?", id).First(&meetup).Error; err != nil {
			return err
		}

		if meetup.ReportedBy.Contains(reporterID) {
			outcome = models.ReportOutcome{AlreadyReported: true, ReportCount: len(meetup.ReportedBy)}
			return nil
		}

		meetup.ReportedBy = meetup.ReportedBy.Add(reporterID)
		count := len(meetup.ReportedBy)

		if count >= lifecycle.ReportDeleteThreshold {
			if err := tx.Where("id = ?", id).Delete(&models.Meetup{}).Error; err != nil {
				return err
			}
			outcome = models.ReportOutcome{Deleted: true, ReportCount: count}
			return nil
		}

		if err := tx.Model(&models.Meetup{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"reported_by":  meetup.ReportedBy,
				"report_count": count,
			}).Error; err != nil {
			return err
		}
		outcome = models.ReportOutcome{Deleted: false, ReportCount: count}
		return nil
	})
	return outcome, err
}
