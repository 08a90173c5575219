package study

import (
	"errors"
	"fmt"
)

// Sentinel errors for the study package.
var (
	ErrInvalidOutcome    = errors.New("study: invalid outcome")
	ErrInvalidMode       = errors.New("study: invalid mode")
	ErrInsufficientCards = errors.New("study: not enough cards")
	ErrNotEnoughOptions  = errors.New("study: not enough distinct answers for options")
	ErrInvalidTransition = errors.New("study: action not allowed in current state")
	ErrSelectionPending  = errors.New("study: pending pair has not resolved yet")
	ErrUnknownTile       = errors.New("study: unknown tile")
	ErrTileLocked        = errors.New("study: tile already matched")
	ErrSessionNotFound   = errors.New("study: session not found")
	ErrSessionClosed     = errors.New("study: session closed")
)

// InsufficientCardsError reports that a mode cannot start with the cards
// available. PracticeAllPossible is true when building with PracticeAll
// would succeed.
type InsufficientCardsError struct {
	Mode                Mode
	Have                int
	Need                int
	PracticeAllPossible bool
}

func (e *InsufficientCardsError) Error() string {
	return fmt.Sprintf("study: %s mode needs %d cards, have %d", e.Mode, e.Need, e.Have)
}

func (e *InsufficientCardsError) Unwrap() error {
	return ErrInsufficientCards
}
