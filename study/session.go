package study

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/clock"
)

// State is the phase of a study session.
type State string

const (
	StateLoading    State = "loading"
	StatePresenting State = "presenting"
	StateRevealed   State = "revealed"
	StateAnswered   State = "answered"
	StateComplete   State = "complete"
)

const (
	DefaultWriteTimeout       = 30 * time.Second
	DefaultMatchFeedbackDelay = 600 * time.Millisecond
)

// MatchResult is what happened after a tile selection.
type MatchResult string

const (
	MatchSelected   MatchResult = "selected"
	MatchDeselected MatchResult = "deselected"
	MatchFound      MatchResult = "match"
	MatchMissed     MatchResult = "mismatch"
)

// Feedback describes the most recently resolved card.
type Feedback struct {
	CardID   string    `json:"card_id"`
	Correct  bool      `json:"correct"`
	Expected string    `json:"expected,omitempty"`
	Given    string    `json:"given,omitempty"`
	Outcome  Outcome   `json:"outcome,omitempty"`
	Schedule *Schedule `json:"schedule,omitempty"`
	Skipped  bool      `json:"skipped,omitempty"`
	TimedOut bool      `json:"timed_out,omitempty"`
}

// CardFace is the part of the current card the learner may see.
type CardFace struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back,omitempty"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	ID          string     `json:"id"`
	DeckID      string     `json:"deck_id"`
	Mode        Mode       `json:"mode"`
	State       State      `json:"state"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Counters    Counters   `json:"counters"`
	Card        *CardFace  `json:"card,omitempty"`
	Options     []string   `json:"options,omitempty"`
	Tiles       []Tile     `json:"tiles,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Last        *Feedback  `json:"last,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	Backfilled  bool       `json:"backfilled"`
	PracticeAll bool       `json:"practice_all"`
}

// Config wires a Session to its collaborators.
type Config struct {
	ID                 string
	UserID             uint
	DeckID             string
	Pool               []Card // whole deck, for quiz distractors
	Sink               ProgressSink
	Clock              clock.Clock
	Rand               *rand.Rand
	Log                *zap.Logger
	WriteTimeout       time.Duration
	MatchFeedbackDelay time.Duration
}

// Session is one bounded run through a plan in a single mode. All methods
// are safe for concurrent use; timer callbacks take the same lock.
type Session struct {
	mu  sync.Mutex
	cfg Config

	mode        Mode
	cards       []Card
	index       int
	state       State
	counters    Counters
	last        *Feedback
	startedAt   time.Time
	lastActive  time.Time
	backfilled  bool
	practiceAll bool
	reported    bool
	closed      bool

	// turn invalidates timer callbacks armed for an earlier card or pair.
	turn int

	options   []string
	deadline  time.Time
	countdown clock.Timer

	tiles    []Tile
	selected []int
	matched  int
	feedback clock.Timer
}

// NewSession starts a session from plan.
func NewSession(cfg Config, plan Plan) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MatchFeedbackDelay <= 0 {
		cfg.MatchFeedbackDelay = DefaultMatchFeedbackDelay
	}
	s := &Session{cfg: cfg, mode: plan.Mode}
	s.mu.Lock()
	s.startLocked(plan)
	s.mu.Unlock()
	return s
}

func (s *Session) ID() string     { return s.cfg.ID }
func (s *Session) UserID() uint   { return s.cfg.UserID }
func (s *Session) DeckID() string { return s.cfg.DeckID }
func (s *Session) Mode() Mode     { return s.mode }

// PracticeAll reports whether the current run bypassed due filtering.
func (s *Session) PracticeAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.practiceAll
}

// LastActive is the time of the most recent action on the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) startLocked(plan Plan) {
	s.stopTimersLocked()
	s.state = StateLoading
	s.cards = plan.Cards
	s.backfilled = plan.Backfilled
	s.practiceAll = plan.PracticeAll
	s.index = 0
	s.counters = Counters{}
	s.last = nil
	s.reported = false
	s.startedAt = s.cfg.Clock.Now()
	s.lastActive = s.startedAt
	s.tiles, s.selected, s.matched = nil, nil, 0
	s.options = nil

	if s.mode == ModeMatching {
		s.turn++
		s.tiles = newBoard(s.cards, s.cfg.Rand)
		s.state = StatePresenting
		return
	}
	s.presentLocked()
}

func (s *Session) presentLocked() {
	s.turn++
	s.options = nil
	s.deadline = time.Time{}
	if s.index >= len(s.cards) {
		s.completeLocked()
		return
	}
	s.state = StatePresenting
	card := s.cards[s.index]

	switch s.mode {
	case ModeQuiz:
		opts, err := GenerateOptions(card, s.cfg.Pool, s.cfg.Rand)
		if err != nil {
			s.cfg.Log.Warn("falling back to reduced quiz options", zap.String("card_id", card.ID), zap.Error(err))
			opts = fallbackOptions(card, s.cfg.Pool, s.cfg.Rand)
		}
		s.options = opts
	case ModeWrite:
		turn := s.turn
		s.deadline = s.cfg.Clock.Now().Add(s.cfg.WriteTimeout)
		s.countdown = s.cfg.Clock.AfterFunc(s.cfg.WriteTimeout, func() { s.expire(turn) })
	}
}

func fallbackOptions(card Card, pool []Card, rng *rand.Rand) []string {
	seen := map[string]bool{normalize(card.BackText): true}
	opts := []string{card.BackText}
	for _, c := range pool {
		if k := normalize(c.BackText); k != "" && !seen[k] && len(opts) < QuizOptionCount {
			seen[k] = true
			opts = append(opts, c.BackText)
		}
	}
	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}

func (s *Session) expire(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || turn != s.turn || s.state != StatePresenting {
		return
	}
	s.countdown = nil
	s.skipLocked(true)
}

func (s *Session) completeLocked() {
	s.stopTimersLocked()
	s.state = StateComplete
	s.index = len(s.cards)
	if s.reported {
		return
	}
	s.reported = true
	s.cfg.Sink.EnqueueResult(Summary{
		SessionID:   s.cfg.ID,
		UserID:      s.cfg.UserID,
		DeckID:      s.cfg.DeckID,
		Mode:        s.mode,
		TotalCards:  len(s.cards),
		Counters:    s.counters,
		StartedAt:   s.startedAt,
		CompletedAt: s.cfg.Clock.Now(),
	})
}

func (s *Session) stopTimersLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	if s.feedback != nil {
		s.feedback.Stop()
		s.feedback = nil
	}
}

func (s *Session) persistLocked(update ProgressUpdate) {
	s.cfg.Sink.EnqueueProgress(s.cfg.UserID, update)
}

// guardLocked checks that the session is open and in one of the allowed
// modes and states.
func (s *Session) guardLocked(modes []Mode, states ...State) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastActive = s.cfg.Clock.Now()
	modeOK := modes == nil
	for _, m := range modes {
		if m == s.mode {
			modeOK = true
		}
	}
	if !modeOK {
		return ErrInvalidTransition
	}
	for _, st := range states {
		if st == s.state {
			return nil
		}
	}
	return ErrInvalidTransition
}

var (
	revealModes = []Mode{ModeFlashcard, ModeSpaced}
	answerModes = []Mode{ModeQuiz, ModeWrite}
	deckModes   = []Mode{ModeFlashcard, ModeSpaced, ModeQuiz, ModeWrite}
)

// Reveal flips the current card in flashcard and spaced modes.
func (s *Session) Reveal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(revealModes, StatePresenting); err != nil {
		return err
	}
	s.state = StateRevealed
	return nil
}

// Rate records the learner's outcome for a revealed card and moves on.
func (s *Session) Rate(outcome Outcome) error {
	if !outcome.IsValid() {
		return ErrInvalidOutcome
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(revealModes, StateRevealed); err != nil {
		return err
	}
	card := s.cards[s.index]
	switch outcome {
	case Good, Easy:
		s.counters.Correct++
	case Hard:
		s.counters.Medium++
	default:
		s.counters.Difficult++
	}
	fb := &Feedback{CardID: card.ID, Correct: outcome.Correct(), Expected: card.BackText, Outcome: outcome}
	if s.mode == ModeSpaced {
		sched := ComputeNextReview(card.ReviewCount+1, outcome)
		fb.Schedule = &sched
	}
	s.last = fb
	update := ProgressUpdate{CardID: card.ID, Correct: outcome.Correct()}
	if s.mode == ModeSpaced {
		update.Outcome = outcome
	}
	s.persistLocked(update)
	s.index++
	s.presentLocked()
	return nil
}

// Answer checks a chosen option (quiz) or typed answer (write).
func (s *Session) Answer(text string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(answerModes, StatePresenting); err != nil {
		return Feedback{}, err
	}
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	s.deadline = time.Time{}
	card := s.cards[s.index]
	correct := answersMatch(text, card.BackText)
	if correct {
		s.counters.Correct++
	} else {
		s.counters.Incorrect++
	}
	fb := Feedback{CardID: card.ID, Correct: correct, Expected: card.BackText, Given: text}
	s.last = &fb
	s.persistLocked(ProgressUpdate{CardID: card.ID, Correct: correct})
	s.state = StateAnswered
	return fb, nil
}

// Advance moves past an answered card.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(answerModes, StateAnswered); err != nil {
		return err
	}
	s.index++
	s.presentLocked()
	return nil
}

// Skip gives up on the current card. It is recorded as incorrect.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(deckModes, StatePresenting, StateRevealed); err != nil {
		return err
	}
	s.skipLocked(false)
	return nil
}

func (s *Session) skipLocked(timedOut bool) {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	card := s.cards[s.index]
	s.counters.Skipped++
	s.last = &Feedback{CardID: card.ID, Expected: card.BackText, Skipped: true, TimedOut: timedOut}
	s.persistLocked(ProgressUpdate{CardID: card.ID, Correct: false})
	s.index++
	s.presentLocked()
}

// Select picks a tile on the matching board. At most two tiles may be
// selected; a third is rejected until the pending pair resolves.
func (s *Session) Select(tileID string) (MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked([]Mode{ModeMatching}, StatePresenting); err != nil {
		return "", err
	}
	idx := -1
	for i := range s.tiles {
		if s.tiles[i].ID == tileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrUnknownTile
	}
	if s.tiles[idx].Matched {
		return "", ErrTileLocked
	}
	if len(s.selected) >= 2 {
		return "", ErrSelectionPending
	}
	if len(s.selected) == 1 && s.selected[0] == idx {
		s.tiles[idx].Selected = false
		s.selected = nil
		return MatchDeselected, nil
	}

	s.tiles[idx].Selected = true
	s.selected = append(s.selected, idx)
	if len(s.selected) < 2 {
		return MatchSelected, nil
	}

	a, b := s.tiles[s.selected[0]], s.tiles[s.selected[1]]
	if IsMatch(a, b) {
		for _, i := range s.selected {
			s.tiles[i].Matched = true
			s.tiles[i].Selected = false
		}
		s.selected = nil
		s.matched++
		s.index = s.matched
		s.counters.Correct++
		s.last = &Feedback{CardID: a.PairID, Correct: true}
		s.persistLocked(ProgressUpdate{CardID: a.PairID, Correct: true})
		if s.matched == len(s.cards) {
			s.completeLocked()
		}
		return MatchFound, nil
	}

	s.counters.Incorrect++
	s.last = &Feedback{CardID: a.PairID, Correct: false}
	s.persistLocked(ProgressUpdate{CardID: a.PairID, Correct: false})
	s.turn++
	turn := s.turn
	s.feedback = s.cfg.Clock.AfterFunc(s.cfg.MatchFeedbackDelay, func() { s.clearSelection(turn) })
	return MatchMissed, nil
}

func (s *Session) clearSelection(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || turn != s.turn {
		return
	}
	for _, i := range s.selected {
		s.tiles[i].Selected = false
	}
	s.selected = nil
	s.feedback = nil
}

// Restart re-enters Loading with a freshly built plan.
func (s *Session) Restart(plan Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.startLocked(plan)
	return nil
}

// Close tears the session down and stops every timer it owns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	s.closed = true
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:          s.cfg.ID,
		DeckID:      s.cfg.DeckID,
		Mode:        s.mode,
		State:       s.state,
		Index:       s.index,
		Total:       len(s.cards),
		Counters:    s.counters,
		StartedAt:   s.startedAt,
		Backfilled:  s.backfilled,
		PracticeAll: s.practiceAll,
	}
	if s.last != nil {
		fb := *s.last
		v.Last = &fb
	}
	if s.mode == ModeMatching {
		if s.state != StateComplete {
			v.Tiles = append([]Tile(nil), s.tiles...)
		}
		return v
	}
	if s.state == StateComplete || s.index >= len(s.cards) {
		return v
	}
	card := s.cards[s.index]
	v.Card = &CardFace{ID: card.ID, Front: card.FrontText}
	if s.state == StateRevealed || s.state == StateAnswered {
		v.Card.Back = card.BackText
	}
	v.Options = append([]string(nil), s.options...)
	if !s.deadline.IsZero() {
		d := s.deadline
		v.Deadline = &d
	}
	return v
}
