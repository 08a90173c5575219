package models

import (
	"time"

	"gorm.io/gorm"
)

// Deck represents a collection of flashcards
type Deck struct {
	gorm.Model  `json:"-"`
	PublicID    string `gorm:"size:100;uniqueIndex" json:"id"`
	Name        string `gorm:"not null;size:100" json:"name"`
	Description string `gorm:"size:1000" json:"description"`
	UserID      uint   `gorm:"not null;index" json:"-"`
	User        User   `gorm:"foreignKey:UserID" json:"-"`

	Cards []Flashcard `gorm:"foreignKey:DeckID" json:"cards,omitempty"`

	IsPublic    bool       `gorm:"default:false" json:"is_public"`
	LastStudied *time.Time `gorm:"default:null" json:"last_studied,omitempty"`
}

// VisibleTo reports whether the user may read the deck and its cards.
func (d Deck) VisibleTo(userID uint) bool {
	return d.IsPublic || d.UserID == userID
}
