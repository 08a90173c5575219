package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/nodebook-study/models"
)

// SettingsStore reads and writes per-user study settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID uint) (models.UserSettings, error)
	SaveSettings(ctx context.Context, settings models.UserSettings) (models.UserSettings, error)
}

var _ SettingsStore = (*SettingsRepository)(nil)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSettings returns the stored settings, or the defaults when the user
// never saved any.
func (r *SettingsRepository) GetSettings(ctx context.Context, userID uint) (models.UserSettings, error) {
	var s models.UserSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSettings(userID), nil
	}
	if err != nil {
		return models.UserSettings{}, err
	}
	return s, nil
}

// SaveSettings upserts on user_id.
func (r *SettingsRepository) SaveSettings(ctx context.Context, s models.UserSettings) (models.UserSettings, error) {
	s.ID = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cards_per_session", "default_session_duration", "required_reviews_to_learn", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return models.UserSettings{}, err
	}
	return r.GetSettings(ctx, s.UserID)
}
