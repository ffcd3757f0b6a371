package storage

import (
	"flashmeet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository handles database operations for PushToken
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// MigrateTable ensures the PushToken table exists
func (r *TokenRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.PushToken{})
}

// Upsert stores the participant's current token, overwriting any
// previous one.
func (r *TokenRepository) Upsert(participantID, token string) error {
	record := models.PushToken{ParticipantID: participantID, Token: token}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&record).Error
}

// GetByParticipants resolves tokens for many participants in one
// query. Participants without a registered token are simply absent
// from the result.
func (r *TokenRepository) GetByParticipants(participantIDs []string) (map[string]string, error) {
	tokens := make(map[string]string, len(participantIDs))
	if len(participantIDs) == 0 {
		return tokens, nil
	}
	var records []models.PushToken
	if err := r.db.Where("participant_id IN ?", participantIDs).Find(&records).Error; err != nil {
		return nil, err
	}
	for _, rec := range records {
		tokens[rec.ParticipantID] = rec.Token
	}
	return tokens, nil
}

// Remove deletes the participant's token registration.
func (r *TokenRepository) Remove(participantID string) error {
	return r.db.Where("participant_id = ?", participantID).Delete(&models.PushToken{}).Error
}
