package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/notify"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/utils"
)

const streamHeartbeat = 25 * time.Second

func (db *DBHandler) writeNotifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, notify.ErrEmptyTitle), errors.Is(err, notify.ErrNegativeDelay),
		errors.Is(err, notify.ErrInvalidRecurrence), errors.Is(err, notify.ErrRecurrenceEnded):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notify.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		db.Log.Error("notification request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GET /api/notifications/?unread=true&limit=50
func (db *DBHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := db.Inbox.ListNotifications(r.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": list})
}

// GET /api/notifications/unread_count/
func (db *DBHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	count, err := db.Inbox.UnreadCount(r.Context(), user.ID)
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

// POST /api/notifications/{id}/mark_read/
func (db *DBHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := db.Inbox.MarkRead(r.Context(), user.ID, r.PathValue("id")); err != nil {
		db.writeNotifyError(w, err)
		return
	}
	db.Notifier.PublishUnread(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/notifications/mark_all_read/
func (db *DBHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := db.Inbox.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	db.Notifier.PublishUnread(r.Context(), user.ID)
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// DELETE /api/notifications/{id}/
func (db *DBHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := db.Inbox.DeleteNotification(r.Context(), user.ID, r.PathValue("id")); err != nil {
		db.writeNotifyError(w, err)
		return
	}
	db.Notifier.PublishUnread(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/notifications/stream sends in-app events as server-sent events.
// The first event carries the current unread count.
func (db *DBHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub := db.Hub.Subscribe(user.ID)
	defer sub.Close()

	count, err := db.Inbox.UnreadCount(r.Context(), user.ID)
	if err != nil {
		db.Log.Warn("failed to count unread notifications", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, notify.Event{Type: notify.EventUnreadCount, UnreadCount: count}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				db.Log.Debug("notification stream closed", zap.Uint("user_id", user.ID), zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

type notificationOptions struct {
	Type     string                      `json:"type" validate:"max=50"`
	Priority models.Priority             `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	TTL      int                         `json:"ttl_minutes" validate:"min=0"`
	Actions  []models.NotificationAction `json:"actions"`
}

func (o notificationOptions) options() notify.Options {
	return notify.Options{
		Type:     o.Type,
		Priority: o.Priority,
		TTL:      time.Duration(o.TTL) * time.Minute,
		Actions:  o.Actions,
	}
}

// POST /api/notifications/schedule/ delivers one notification after a delay.
func (db *DBHandler) ScheduleNotification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		notificationOptions
		Title        string `json:"title" validate:"required,max=200"`
		Message      string `json:"message" validate:"max=2000"`
		DelaySeconds int    `json:"delay_seconds" validate:"min=0"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	handle, err := db.Notifier.Schedule(user.ID, req.Title, req.Message, time.Duration(req.DelaySeconds)*time.Second, req.options())
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"handle": string(handle)})
}

// DELETE /api/notifications/schedule/{handle}
func (db *DBHandler) CancelScheduledNotification(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := db.Notifier.CancelSchedule(r.Context(), user.ID, r.PathValue("handle")); err != nil {
		db.writeNotifyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/notifications/recurring/
func (db *DBHandler) ListRecurringReminders(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := db.Inbox.ListSchedules(r.Context(), user.ID)
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": list})
}

// POST /api/notifications/recurring/
func (db *DBHandler) CreateRecurringReminder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		notificationOptions
		Title           string     `json:"title" validate:"required,max=200"`
		Message         string     `json:"message" validate:"max=2000"`
		Kind            string     `json:"kind" validate:"oneof=daily weekly interval"`
		TimeOfDay       string     `json:"time_of_day"`
		Weekday         int        `json:"weekday" validate:"min=0,max=6"`
		IntervalMinutes int        `json:"interval_minutes" validate:"min=0"`
		StartAt         *time.Time `json:"start_at"`
		EndAt           *time.Time `json:"end_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := notify.Recurrence{
		Kind:      notify.Kind(req.Kind),
		TimeOfDay: req.TimeOfDay,
		Weekday:   time.Weekday(req.Weekday),
		Interval:  time.Duration(req.IntervalMinutes) * time.Minute,
		End:       req.EndAt,
	}
	if req.StartAt != nil {
		rec.Start = *req.StartAt
	}

	s, err := db.Notifier.ScheduleRecurring(r.Context(), user.ID, req.Title, req.Message, rec, req.options())
	if err != nil {
		db.writeNotifyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, s)
}

// DELETE /api/notifications/recurring/{id}
func (db *DBHandler) DeleteRecurringReminder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := db.Notifier.CancelSchedule(r.Context(), user.ID, r.PathValue("id")); err != nil {
		db.writeNotifyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
