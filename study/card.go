package study

import (
	"fmt"
	"time"
)

// Card is the study view of a flashcard.
type Card struct {
	ID           string     `json:"id"`
	FrontText    string     `json:"front_text"`
	BackText     string     `json:"back_text"`
	Learned      bool       `json:"learned"`
	ReviewCount  int        `json:"review_count"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	NextReview   *time.Time `json:"next_review,omitempty"`
}

// IsDue reports whether the card should be preferred for a session at now:
// it is not learned yet, or its next review time has passed.
func (c Card) IsDue(now time.Time) bool {
	if !c.Learned {
		return true
	}
	return c.NextReview == nil || !c.NextReview.After(now)
}

func (c Card) clone() Card {
	out := c
	if c.LastReviewed != nil {
		v := *c.LastReviewed
		out.LastReviewed = &v
	}
	if c.NextReview != nil {
		v := *c.NextReview
		out.NextReview = &v
	}
	return out
}

// Mode is a study mode.
type Mode string

const (
	ModeFlashcard Mode = "flashcard"
	ModeQuiz      Mode = "quiz"
	ModeMatching  Mode = "matching"
	ModeWrite     Mode = "write"
	ModeSpaced    Mode = "spaced"
)

// MatchingCap is the largest number of cards a matching board holds.
const MatchingCap = 12

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFlashcard, ModeQuiz, ModeMatching, ModeWrite, ModeSpaced:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// MinCards is the smallest pool the mode can run with.
func (m Mode) MinCards() int {
	switch m {
	case ModeMatching:
		return 3
	case ModeQuiz:
		return 4
	default:
		return 1
	}
}

// limit applies the mode cap to the configured cards per session.
func (m Mode) limit(maxCards int) int {
	if m == ModeMatching && maxCards > MatchingCap {
		return MatchingCap
	}
	return maxCards
}
