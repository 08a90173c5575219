package models

import (
	"time"
)

// SessionResult is the stored summary of a completed study session.
type SessionResult struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	SessionID       string    `gorm:"size:50;uniqueIndex" json:"session_id"`
	UserID          uint      `gorm:"not null;index" json:"-"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	DeckID          uint      `gorm:"not null;index" json:"-"`
	Deck            Deck      `gorm:"foreignKey:DeckID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Mode            string    `gorm:"size:20;not null" json:"mode"`
	TotalCards      int       `gorm:"not null" json:"total_cards"`
	Correct         int       `gorm:"not null" json:"correct"`
	Medium          int       `gorm:"not null" json:"medium"`
	Difficult       int       `gorm:"not null" json:"difficult"`
	Incorrect       int       `gorm:"not null" json:"incorrect"`
	Skipped         int       `gorm:"not null" json:"skipped"`
	DurationSeconds int       `gorm:"not null" json:"duration_seconds"`
	CompletedAt     time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// Accuracy is the share of cards answered correctly.
func (r SessionResult) Accuracy() float64 {
	if r.TotalCards == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.TotalCards)
}
