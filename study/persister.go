package study

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counters aggregates answers within one session.
type Counters struct {
	Correct   int `json:"correct"`
	Medium    int `json:"medium"`
	Difficult int `json:"difficult"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// Summary describes a completed session.
type Summary struct {
	SessionID   string    `json:"session_id"`
	UserID      uint      `json:"-"`
	DeckID      string    `json:"deck_id"`
	Mode        Mode      `json:"mode"`
	TotalCards  int       `json:"total_cards"`
	Counters    Counters  `json:"counters"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall time between start and completion.
func (s Summary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// ProgressUpdate is one answered or skipped card. Outcome is zero when
// the mode only knows right from wrong.
type ProgressUpdate struct {
	CardID  string
	Correct bool
	Outcome Outcome
}

// ProgressStore persists per-card progress and session results.
type ProgressStore interface {
	UpdateCardProgress(ctx context.Context, userID uint, update ProgressUpdate) error
	SaveSessionResult(ctx context.Context, summary Summary) error
}

// ProgressSink accepts progress without waiting for it to be stored.
type ProgressSink interface {
	EnqueueProgress(userID uint, update ProgressUpdate)
	EnqueueResult(summary Summary)
}

var _ ProgressSink = (*Persister)(nil)

type job struct {
	userID  uint
	update  ProgressUpdate
	summary *Summary
}

// Persister writes progress in the background. Enqueueing never blocks:
// a full queue drops the update with a warning, and failed writes are
// logged and not retried.
type Persister struct {
	store   ProgressStore
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// NewPersister starts the background writer.
func NewPersister(store ProgressStore, log *zap.Logger, queueSize int, timeout time.Duration) *Persister {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Persister{
		store:   store,
		log:     log,
		timeout: timeout,
		jobs:    make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// EnqueueProgress schedules UpdateCardProgress for a card.
func (p *Persister) EnqueueProgress(userID uint, update ProgressUpdate) {
	p.enqueue(job{userID: userID, update: update})
}

// EnqueueResult schedules SaveSessionResult for a completed session.
func (p *Persister) EnqueueResult(summary Summary) {
	p.enqueue(job{userID: summary.UserID, summary: &summary})
}

func (p *Persister) enqueue(j job) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("progress persister closed, dropping update", zap.String("card_id", j.update.CardID))
		return
	}
	select {
	case p.jobs <- j:
	default:
		p.log.Warn("progress queue full, dropping update", zap.String("card_id", j.update.CardID))
	}
}

func (p *Persister) run() {
	defer close(p.done)
	for j := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if j.summary != nil {
			if err := p.store.SaveSessionResult(ctx, *j.summary); err != nil {
				p.log.Warn("failed to save session result",
					zap.String("session_id", j.summary.SessionID), zap.Error(err))
			}
		} else if err := p.store.UpdateCardProgress(ctx, j.userID, j.update); err != nil {
			p.log.Warn("failed to update card progress",
				zap.Uint("user_id", j.userID), zap.String("card_id", j.update.CardID), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting updates and waits for queued ones to be written.
func (p *Persister) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	<-p.done
}
