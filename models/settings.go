package models

import "time"

// UserSettings holds per-user study preferences.
type UserSettings struct {
	ID                     uint      `gorm:"primaryKey" json:"-"`
	UserID                 uint      `gorm:"uniqueIndex;not null" json:"-"`
	CardsPerSession        int       `gorm:"not null;default:20" json:"cards_per_session" validate:"min=1,max=200"`
	DefaultSessionDuration int       `gorm:"not null;default:20" json:"default_session_duration" validate:"min=1,max=240"`
	RequiredReviewsToLearn int       `gorm:"not null;default:3" json:"required_reviews_to_learn" validate:"min=1,max=20"`
	UpdatedAt              time.Time `json:"-"`
}

// DefaultSettings is used for users without stored settings and whenever
// loading them fails.
func DefaultSettings(userID uint) UserSettings {
	return UserSettings{
		UserID:                 userID,
		CardsPerSession:        20,
		DefaultSessionDuration: 20,
		RequiredReviewsToLearn: 3,
	}
}
