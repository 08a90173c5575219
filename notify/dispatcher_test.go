package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/notify"
	mock_notify "github.com/andrewpaige1/nodebook-study/notify/mock"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/testutil"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	clk    *clock.Fake
	repo   *repository.NotificationRepository
	pusher *mock_notify.MockPusher
	hub    *notify.Hub
	d      *notify.Dispatcher
	user   uint
}

func newFixture(t *testing.T, log *zap.Logger, opts notify.DispatcherOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "auth0|reminders", "rem")

	f := &fixture{
		clk:    clock.NewFake(t0),
		pusher: mock_notify.NewMockPusher(gomock.NewController(t)),
		hub:    notify.NewHub(8, zap.NewNop()),
		user:   user.ID,
	}
	f.repo = repository.NewNotificationRepository(db, f.clk)
	f.d = notify.NewDispatcher(f.repo, f.pusher, f.hub, f.clk, log, opts)
	t.Cleanup(f.d.Close)
	return f
}

func (f *fixture) grant() {
	f.pusher.EXPECT().Permission().Return(notify.PermissionGranted).AnyTimes()
	f.pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (f *fixture) inbox(t *testing.T) []models.Notification {
	t.Helper()
	list, err := f.repo.ListNotifications(context.Background(), f.user, false, 0)
	require.NoError(t, err)
	return list
}

func TestNotify_PushesWhenGranted(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	sub := f.hub.Subscribe(f.user)
	defer sub.Close()

	f.pusher.EXPECT().Permission().Return(notify.PermissionGranted)
	f.pusher.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n models.Notification) error {
		assert.Equal(t, "Deck ready", n.Title)
		return nil
	})

	n, err := f.d.Notify(context.Background(), f.user, notify.Input{Title: "Deck ready", Message: "Go study"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.PublicID)
	assert.Equal(t, models.PriorityNormal, n.Priority)
	assert.Equal(t, "info", n.Type)

	ev := <-sub.C
	assert.Equal(t, notify.EventNotification, ev.Type)
	assert.Equal(t, int64(1), ev.UnreadCount)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, n.PublicID, ev.Notification.PublicID)
	assert.Len(t, f.inbox(t), 1)
}

func TestNotify_DeniedStillPublishesInApp(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, zap.New(core), notify.DispatcherOptions{})
	sub := f.hub.Subscribe(f.user)
	defer sub.Close()

	f.pusher.EXPECT().Permission().Return(notify.PermissionDenied)

	_, err := f.d.Notify(context.Background(), f.user, notify.Input{Title: "Hello"})
	require.NoError(t, err)

	ev := <-sub.C
	assert.Equal(t, int64(1), ev.UnreadCount)
	assert.Equal(t, 1, logs.FilterMessage("native push skipped").Len())
}

func TestNotify_DefaultPermissionIsRequested(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})

	gomock.InOrder(
		f.pusher.EXPECT().Permission().Return(notify.PermissionDefault),
		f.pusher.EXPECT().RequestPermission(gomock.Any()).Return(notify.PermissionGranted, nil),
		f.pusher.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil),
	)

	_, err := f.d.Notify(context.Background(), f.user, notify.Input{Title: "Hello"})
	require.NoError(t, err)
}

func TestNotify_RequiresTitle(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})

	_, err := f.d.Notify(context.Background(), f.user, notify.Input{Title: "  "})
	assert.ErrorIs(t, err, notify.ErrEmptyTitle)
}

func TestSchedule_FiresOnceAfterDelay(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	f.grant()

	h, err := f.d.Schedule(f.user, "Break over", "", 5*time.Minute, notify.Options{Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	f.clk.Advance(4 * time.Minute)
	assert.Empty(t, f.inbox(t))

	f.clk.Advance(time.Minute)
	inbox := f.inbox(t)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.PriorityHigh, inbox[0].Priority)

	f.clk.Advance(time.Hour)
	assert.Len(t, f.inbox(t), 1)
}

func TestSchedule_Cancel(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	ctx := context.Background()

	h, err := f.d.Schedule(f.user, "Later", "", time.Minute, notify.Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.d.CancelSchedule(ctx, f.user+1, string(h)), repository.ErrNotFound)
	require.NoError(t, f.d.CancelSchedule(ctx, f.user, string(h)))

	f.clk.Advance(time.Hour)
	assert.Empty(t, f.inbox(t))
	assert.ErrorIs(t, f.d.CancelSchedule(ctx, f.user, string(h)), repository.ErrNotFound)
}

func TestSchedule_Validation(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})

	_, err := f.d.Schedule(f.user, "", "", time.Minute, notify.Options{})
	assert.ErrorIs(t, err, notify.ErrEmptyTitle)
	_, err = f.d.Schedule(f.user, "x", "", -time.Minute, notify.Options{})
	assert.ErrorIs(t, err, notify.ErrNegativeDelay)
}

func TestScheduleRecurring_SelfReschedulesUntilCancelled(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	f.grant()
	ctx := context.Background()

	s, err := f.d.ScheduleRecurring(ctx, f.user, "Review", "Cards are due", notify.Recurrence{Kind: notify.KindInterval, Interval: 30 * time.Minute}, notify.Options{})
	require.NoError(t, err)
	assert.True(t, s.Active)
	assert.Equal(t, t0.Add(30*time.Minute), s.NextFireAt)

	f.clk.Advance(30 * time.Minute)
	assert.Len(t, f.inbox(t), 1)
	f.clk.Advance(30 * time.Minute)
	assert.Len(t, f.inbox(t), 2)

	stored, err := f.repo.ListSchedules(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, t0.Add(90*time.Minute).Equal(stored[0].NextFireAt))

	require.NoError(t, f.d.CancelSchedule(ctx, f.user, s.PublicID))
	f.clk.Advance(2 * time.Hour)
	assert.Len(t, f.inbox(t), 2)

	stored, err = f.repo.ListSchedules(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, stored)
	_, reminders := f.d.Pending()
	assert.Equal(t, 0, reminders)
}

func TestScheduleRecurring_KeepsTTLAndActions(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	f.grant()
	ctx := context.Background()

	actions := []models.NotificationAction{{Label: "Study now", URL: "/decks/abc/study"}}
	s, err := f.d.ScheduleRecurring(ctx, f.user, "Review", "", notify.Recurrence{Kind: notify.KindInterval, Interval: time.Hour},
		notify.Options{Type: "reminder", TTL: 90 * time.Minute, Actions: actions})
	require.NoError(t, err)
	assert.Equal(t, 90, s.TTLMinutes)

	stored, err := f.repo.ListSchedules(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 90, stored[0].TTLMinutes)
	assert.Equal(t, actions, stored[0].Actions)

	f.clk.Advance(time.Hour)
	list := f.inbox(t)
	require.Len(t, list, 1)
	assert.Equal(t, "reminder", list[0].Type)
	assert.Equal(t, actions, list[0].Actions)
	require.NotNil(t, list[0].ExpiresAt)
	assert.True(t, t0.Add(time.Hour+90*time.Minute).Equal(*list[0].ExpiresAt))
}

func TestScheduleRecurring_StopsAtEndDate(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	f.grant()
	ctx := context.Background()

	end := t0.Add(50 * time.Hour)
	_, err := f.d.ScheduleRecurring(ctx, f.user, "Daily", "", notify.Recurrence{Kind: notify.KindDaily, TimeOfDay: "09:00", End: &end}, notify.Options{})
	require.NoError(t, err)

	f.clk.Advance(7 * 24 * time.Hour)
	assert.Len(t, f.inbox(t), 2)

	active, err := f.repo.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestScheduleRecurring_RejectsEndedRecurrence(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})

	end := t0.Add(-time.Hour)
	_, err := f.d.ScheduleRecurring(context.Background(), f.user, "Never", "", notify.Recurrence{Kind: notify.KindDaily, TimeOfDay: "09:00", End: &end}, notify.Options{})
	assert.ErrorIs(t, err, notify.ErrRecurrenceEnded)

	_, err = f.d.ScheduleRecurring(context.Background(), f.user, "Bad", "", notify.Recurrence{Kind: notify.KindDaily, TimeOfDay: "9am"}, notify.Options{})
	assert.ErrorIs(t, err, notify.ErrInvalidRecurrence)
}

func TestRestore_MissedFireTimeFiresOnce(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})
	f.grant()
	ctx := context.Background()

	missed := models.ReminderSchedule{
		PublicID:        "sched-1",
		UserID:          f.user,
		Title:           "Missed while down",
		Kind:            string(notify.KindInterval),
		IntervalMinutes: 60,
		StartAt:         t0.Add(-5 * time.Hour),
		NextFireAt:      t0.Add(-3 * time.Hour),
		Active:          true,
	}
	require.NoError(t, f.repo.SaveSchedule(ctx, &missed))

	n, err := f.d.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.clk.Advance(0)
	assert.Len(t, f.inbox(t), 1)

	stored, err := f.repo.ListSchedules(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, t0.Add(time.Hour).Equal(stored[0].NextFireAt))

	f.clk.Advance(time.Hour)
	assert.Len(t, f.inbox(t), 2)
}

func TestCleanup_PurgesExpired(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{DefaultTTL: 24 * time.Hour})
	f.grant()
	ctx := context.Background()

	_, err := f.d.Notify(ctx, f.user, notify.Input{Title: "short", Options: notify.Options{TTL: time.Hour}})
	require.NoError(t, err)
	_, err = f.d.Notify(ctx, f.user, notify.Input{Title: "default ttl"})
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)
	assert.Len(t, f.inbox(t), 1)

	purged, err := f.d.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestClose_StopsTimers(t *testing.T) {
	f := newFixture(t, zap.NewNop(), notify.DispatcherOptions{})

	_, err := f.d.Schedule(f.user, "pending", "", time.Minute, notify.Options{})
	require.NoError(t, err)
	_, err = f.d.ScheduleRecurring(context.Background(), f.user, "every", "", notify.Recurrence{Kind: notify.KindInterval, Interval: time.Minute}, notify.Options{})
	require.NoError(t, err)

	f.d.Close()
	assert.Equal(t, 0, f.clk.Pending())

	f.clk.Advance(time.Hour)
	assert.Empty(t, f.inbox(t))

	_, err = f.d.Schedule(f.user, "late", "", time.Minute, notify.Options{})
	assert.ErrorIs(t, err, notify.ErrClosed)
}
