package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/study"
)

// Flashcard represents an individual flashcard
type Flashcard struct {
	gorm.Model `json:"-"`
	PublicID   string `gorm:"size:100;uniqueIndex" json:"id"`
	FrontText  string `gorm:"not null;size:500" json:"front_text"`
	BackText   string `gorm:"not null;size:1000" json:"back_text"`

	DeckID uint `gorm:"not null;index" json:"-"`
	Deck   Deck `gorm:"foreignKey:DeckID" json:"-"`

	// Review progress
	Learned      bool       `gorm:"default:false" json:"learned"`
	ReviewCount  int        `gorm:"default:0" json:"review_count"`
	LastReviewed *time.Time `gorm:"default:null" json:"last_reviewed"`
	NextReview   *time.Time `gorm:"default:null;index" json:"next_review"`
}

// StudyCard converts the row to the study package's card.
func (f Flashcard) StudyCard() study.Card {
	return study.Card{
		ID:           f.PublicID,
		FrontText:    f.FrontText,
		BackText:     f.BackText,
		Learned:      f.Learned,
		ReviewCount:  f.ReviewCount,
		LastReviewed: f.LastReviewed,
		NextReview:   f.NextReview,
	}
}

// SetProgress copies review progress from a study card.
func (f *Flashcard) SetProgress(c study.Card) {
	f.Learned = c.Learned
	f.ReviewCount = c.ReviewCount
	f.LastReviewed = c.LastReviewed
	f.NextReview = c.NextReview
}

// StudyCards converts a slice of rows.
func StudyCards(cards []Flashcard) []study.Card {
	out := make([]study.Card, len(cards))
	for i, c := range cards {
		out[i] = c.StudyCard()
	}
	return out
}
