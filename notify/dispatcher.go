package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/repository"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	SaveSchedule(ctx context.Context, s *models.ReminderSchedule) error
	ActiveSchedules(ctx context.Context) ([]models.ReminderSchedule, error)
	AdvanceSchedule(ctx context.Context, publicID string, next time.Time, active bool) error
	DeactivateSchedule(ctx context.Context, userID uint, publicID string) error
}

var _ Store = (*repository.NotificationRepository)(nil)

var (
	ErrEmptyTitle    = errors.New("notify: title is required")
	ErrNegativeDelay = errors.New("notify: delay must not be negative")
	ErrClosed        = errors.New("notify: dispatcher closed")
)

// Handle identifies a pending one-shot notification.
type Handle string

// Options are the optional notification fields.
type Options struct {
	Type     string
	Priority models.Priority
	TTL      time.Duration
	Actions  []models.NotificationAction
}

// Input is a notification to create.
type Input struct {
	Title   string
	Message string
	Options
}

type DispatcherOptions struct {
	DefaultTTL  time.Duration // zero keeps notifications until deleted
	FireTimeout time.Duration
}

type oneShot struct {
	userID uint
	timer  clock.Timer
}

type reminder struct {
	schedule models.ReminderSchedule
	timer    clock.Timer
}

// Dispatcher stores notifications, pushes them natively when allowed and
// publishes them in-app. It owns every reminder timer.
type Dispatcher struct {
	store  Store
	pusher Pusher
	hub    *Hub
	clock  clock.Clock
	log    *zap.Logger
	opts   DispatcherOptions

	mu        sync.Mutex
	closed    bool
	oneShots  map[Handle]*oneShot
	reminders map[string]*reminder
}

func NewDispatcher(store Store, pusher Pusher, hub *Hub, clk clock.Clock, log *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.FireTimeout <= 0 {
		opts.FireTimeout = 10 * time.Second
	}
	return &Dispatcher{
		store:     store,
		pusher:    pusher,
		hub:       hub,
		clock:     clk,
		log:       log,
		opts:      opts,
		oneShots:  make(map[Handle]*oneShot),
		reminders: make(map[string]*reminder),
	}
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Notify persists the notification to the user's inbox and delivers it.
// Native push problems are logged; only inbox failures are returned.
func (d *Dispatcher) Notify(ctx context.Context, userID uint, in Input) (models.Notification, error) {
	if err := in.validate(); err != nil {
		return models.Notification{}, err
	}

	publicID, err := gonanoid.New()
	if err != nil {
		return models.Notification{}, fmt.Errorf("generate notification id: %w", err)
	}

	now := d.clock.Now()
	n := models.Notification{
		PublicID:  publicID,
		UserID:    userID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  in.Priority,
		CreatedAt: now,
		Actions:   in.Actions,
	}
	if n.Type == "" {
		n.Type = "info"
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = d.opts.DefaultTTL
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		n.ExpiresAt = &expires
	}

	if err := d.store.CreateNotification(ctx, &n); err != nil {
		return models.Notification{}, fmt.Errorf("save notification: %w", err)
	}
	d.deliver(ctx, n)
	return n, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) {
	perm := d.pusher.Permission()
	if perm == PermissionDefault {
		var err error
		perm, err = d.pusher.RequestPermission(ctx)
		if err != nil {
			d.log.Info("push permission request failed", zap.Error(err))
		}
	}

	if perm == PermissionGranted {
		if err := d.pusher.Push(ctx, n); err != nil {
			d.log.Warn("native push failed", zap.String("id", n.PublicID), zap.Error(err))
		}
	} else {
		d.log.Info("native push skipped", zap.String("id", n.PublicID), zap.String("permission", string(perm)))
	}

	count, err := d.store.UnreadCount(ctx, n.UserID)
	if err != nil {
		d.log.Warn("failed to count unread notifications", zap.Uint("user_id", n.UserID), zap.Error(err))
	}
	d.hub.Publish(n.UserID, Event{Type: EventNotification, Notification: &n, UnreadCount: count})
}

// PublishUnread sends the current unread count to the user's subscribers.
func (d *Dispatcher) PublishUnread(ctx context.Context, userID uint) {
	count, err := d.store.UnreadCount(ctx, userID)
	if err != nil {
		d.log.Warn("failed to count unread notifications", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	d.hub.Publish(userID, Event{Type: EventUnreadCount, UnreadCount: count})
}

func (d *Dispatcher) fireContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.opts.FireTimeout)
}

// Schedule delivers a notification once after delay.
func (d *Dispatcher) Schedule(userID uint, title, message string, delay time.Duration, opts Options) (Handle, error) {
	in := Input{Title: title, Message: message, Options: opts}
	if err := in.validate(); err != nil {
		return "", err
	}
	if delay < 0 {
		return "", ErrNegativeDelay
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	h := Handle(id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrClosed
	}
	entry := &oneShot{userID: userID}
	d.oneShots[h] = entry
	entry.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.oneShots[h] != entry {
			d.mu.Unlock()
			return
		}
		delete(d.oneShots, h)
		d.mu.Unlock()

		ctx, cancel := d.fireContext()
		defer cancel()
		if _, err := d.Notify(ctx, userID, in); err != nil {
			d.log.Warn("scheduled notification failed", zap.String("handle", string(h)), zap.Error(err))
		}
	})
	return h, nil
}

// ScheduleRecurring stores a reminder and arms its first occurrence.
func (d *Dispatcher) ScheduleRecurring(ctx context.Context, userID uint, title, message string, rec Recurrence, opts Options) (models.ReminderSchedule, error) {
	if err := (Input{Title: title}).validate(); err != nil {
		return models.ReminderSchedule{}, err
	}
	now := d.clock.Now()
	if rec.Start.IsZero() {
		rec.Start = now
	}
	if err := rec.Validate(); err != nil {
		return models.ReminderSchedule{}, err
	}
	next, ok := rec.Next(now)
	if !ok {
		return models.ReminderSchedule{}, ErrRecurrenceEnded
	}

	publicID, err := gonanoid.New()
	if err != nil {
		return models.ReminderSchedule{}, err
	}
	s := models.ReminderSchedule{
		PublicID:        publicID,
		UserID:          userID,
		Title:           title,
		Message:         message,
		Type:            opts.Type,
		Priority:        opts.Priority,
		TTLMinutes:      ttlMinutes(opts.TTL),
		Actions:         opts.Actions,
		Kind:            string(rec.Kind),
		TimeOfDay:       rec.TimeOfDay,
		Weekday:         int(rec.Weekday),
		IntervalMinutes: int(rec.Interval / time.Minute),
		StartAt:         rec.Start,
		EndAt:           rec.End,
		NextFireAt:      next,
		Active:          true,
		CreatedAt:       now,
	}
	if err := d.store.SaveSchedule(ctx, &s); err != nil {
		return models.ReminderSchedule{}, fmt.Errorf("save schedule: %w", err)
	}
	d.arm(s)
	return s, nil
}

// ttlMinutes stores a reminder TTL at minute precision, rounding up so a
// positive TTL never turns into the default.
func ttlMinutes(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int((ttl + time.Minute - 1) / time.Minute)
}

func (d *Dispatcher) arm(s models.ReminderSchedule) {
	delay := s.NextFireAt.Sub(d.clock.Now())
	if delay < 0 {
		delay = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if old := d.reminders[s.PublicID]; old != nil {
		old.timer.Stop()
	}
	entry := &reminder{schedule: s}
	d.reminders[s.PublicID] = entry
	entry.timer = d.clock.AfterFunc(delay, func() { d.fire(entry) })
}

func (d *Dispatcher) fire(entry *reminder) {
	s := entry.schedule
	d.mu.Lock()
	if d.reminders[s.PublicID] != entry {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	ctx, cancel := d.fireContext()
	defer cancel()

	in := Input{Title: s.Title, Message: s.Message, Options: Options{
		Type:     s.Type,
		Priority: s.Priority,
		TTL:      time.Duration(s.TTLMinutes) * time.Minute,
		Actions:  s.Actions,
	}}
	if _, err := d.Notify(ctx, s.UserID, in); err != nil {
		d.log.Warn("reminder delivery failed", zap.String("schedule", s.PublicID), zap.Error(err))
	}

	next, ok := RecurrenceOf(s).Next(d.clock.Now())
	if !ok {
		d.mu.Lock()
		if d.reminders[s.PublicID] == entry {
			delete(d.reminders, s.PublicID)
		}
		d.mu.Unlock()
		if err := d.store.AdvanceSchedule(ctx, s.PublicID, s.NextFireAt, false); err != nil {
			d.log.Warn("failed to finish schedule", zap.String("schedule", s.PublicID), zap.Error(err))
		}
		d.log.Info("reminder schedule ended", zap.String("schedule", s.PublicID))
		return
	}

	if err := d.store.AdvanceSchedule(ctx, s.PublicID, next, true); err != nil {
		d.log.Warn("failed to advance schedule", zap.String("schedule", s.PublicID), zap.Error(err))
	}

	d.mu.Lock()
	current := d.reminders[s.PublicID] == entry
	d.mu.Unlock()
	if current {
		s.NextFireAt = next
		d.arm(s)
	}
}

// CancelSchedule cancels a pending one-shot handle or a recurring schedule
// owned by userID.
func (d *Dispatcher) CancelSchedule(ctx context.Context, userID uint, id string) error {
	d.mu.Lock()
	if entry, ok := d.oneShots[Handle(id)]; ok && entry.userID == userID {
		entry.timer.Stop()
		delete(d.oneShots, Handle(id))
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if err := d.store.DeactivateSchedule(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
		return err
	}

	d.mu.Lock()
	if entry, ok := d.reminders[id]; ok {
		entry.timer.Stop()
		delete(d.reminders, id)
	}
	d.mu.Unlock()
	return nil
}

// Restore re-arms every active schedule. A fire time missed while the
// process was down fires once, immediately.
func (d *Dispatcher) Restore(ctx context.Context) (int, error) {
	schedules, err := d.store.ActiveSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("load schedules: %w", err)
	}
	for _, s := range schedules {
		d.arm(s)
	}
	if len(schedules) > 0 {
		d.log.Info("restored reminder schedules", zap.Int("count", len(schedules)))
	}
	return len(schedules), nil
}

// Cleanup purges expired notifications.
func (d *Dispatcher) Cleanup(ctx context.Context) (int64, error) {
	n, err := d.store.DeleteExpired(ctx, d.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.log.Info("purged expired notifications", zap.Int64("count", n))
	}
	return n, nil
}

// Run cleans up expired notifications every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Cleanup(ctx); err != nil {
				d.log.Warn("notification cleanup failed", zap.Error(err))
			}
		}
	}
}

// Pending reports armed one-shot and recurring timers.
func (d *Dispatcher) Pending() (oneShots, reminders int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.oneShots), len(d.reminders)
}

// Close stops every timer. Later scheduling calls fail with ErrClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for h, entry := range d.oneShots {
		entry.timer.Stop()
		delete(d.oneShots, h)
	}
	for id, entry := range d.reminders {
		entry.timer.Stop()
		delete(d.reminders, id)
	}
}
