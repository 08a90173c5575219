package study

import (
	"context"
	"math/rand"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/clock"
)

// ManagerOptions tunes session timers and expiry.
type ManagerOptions struct {
	WriteTimeout       time.Duration
	MatchFeedbackDelay time.Duration
	IdleTTL            time.Duration // zero means 2h
	Seed               int64         // zero seeds from the clock
}

// Manager keeps the in-memory sessions of every user.
type Manager struct {
	sink  ProgressSink
	clock clock.Clock
	log   *zap.Logger
	opts  ManagerOptions

	mu       sync.Mutex
	sessions map[string]*Session
	seq      int64
}

// NewManager creates an empty session registry.
func NewManager(sink ProgressSink, clk clock.Clock, log *zap.Logger, opts ManagerOptions) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	if opts.Seed == 0 {
		opts.Seed = clk.Now().UnixNano()
	}
	return &Manager{
		sink:     sink,
		clock:    clk,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) nextRand() *rand.Rand {
	m.seq++
	return rand.New(rand.NewSource(m.opts.Seed + m.seq))
}

// Start builds a plan from pool and registers a new session for userID.
// An *InsufficientCardsError is returned unchanged so callers can offer
// the practice-with-all-cards fallback.
func (m *Manager) Start(userID uint, deckID string, mode Mode, pool []Card, opts BuildOptions) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	rng := m.nextRand()
	m.mu.Unlock()

	opts.Rand = rng
	if opts.Now.IsZero() {
		opts.Now = m.clock.Now()
	}
	plan, err := BuildSession(pool, mode, opts)
	if err != nil {
		return nil, err
	}

	s := NewSession(Config{
		ID:                 id,
		UserID:             userID,
		DeckID:             deckID,
		Pool:               dedupe(pool),
		Sink:               m.sink,
		Clock:              m.clock,
		Rand:               rng,
		Log:                m.log.With(zap.String("session_id", id)),
		WriteTimeout:       m.opts.WriteTimeout,
		MatchFeedbackDelay: m.opts.MatchFeedbackDelay,
	}, plan)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("study session started",
		zap.String("session_id", id), zap.Uint("user_id", userID), zap.String("deck_id", deckID),
		zap.String("mode", string(mode)), zap.Int("cards", len(plan.Cards)), zap.Bool("backfilled", plan.Backfilled))
	return s, nil
}

// Get returns the session if it exists and belongs to userID.
func (m *Manager) Get(id string, userID uint) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Restart rebuilds the session's plan from a fresh pool, keeping its mode
// and practice-all choice.
func (m *Manager) Restart(id string, userID uint, pool []Card, opts BuildOptions) (*Session, error) {
	s, err := m.Get(id, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	opts.Rand = m.nextRand()
	m.mu.Unlock()
	opts.PracticeAll = s.PracticeAll()
	if opts.Now.IsZero() {
		opts.Now = m.clock.Now()
	}
	plan, err := BuildSession(pool, s.Mode(), opts)
	if err != nil {
		return nil, err
	}
	if err := s.Restart(plan); err != nil {
		return nil, err
	}
	return s, nil
}

// Remove exits the session and releases its timers.
func (m *Manager) Remove(id string, userID uint) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID() != userID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close()
	return nil
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL.
func (m *Manager) Sweep() int {
	cutoff := m.clock.Now().Add(-m.opts.IdleTTL)
	var stale []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		m.log.Info("expired idle study sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
