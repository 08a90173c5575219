package models

import "time"

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NotificationAction is a button attached to a notification.
type NotificationAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Notification is an in-app message for one user.
type Notification struct {
	ID        uint                 `gorm:"primaryKey" json:"-"`
	PublicID  string               `gorm:"size:50;uniqueIndex" json:"id"`
	UserID    uint                 `gorm:"not null;index" json:"-"`
	Type      string               `gorm:"size:50;not null" json:"type"`
	Title     string               `gorm:"size:200;not null" json:"title"`
	Message   string               `gorm:"size:2000" json:"message"`
	Priority  Priority             `gorm:"size:20;not null" json:"priority"`
	IsRead    bool                 `gorm:"default:false;index" json:"isRead"`
	CreatedAt time.Time            `json:"createdAt"`
	ExpiresAt *time.Time           `gorm:"index" json:"expiresAt,omitempty"`
	Actions   []NotificationAction `gorm:"serializer:json" json:"actions,omitempty"`
}

// Expired reports whether the notification should be purged at now.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// ReminderSchedule is a persisted recurring reminder.
type ReminderSchedule struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	PublicID        string     `gorm:"size:50;uniqueIndex" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"-"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Message         string     `gorm:"size:2000" json:"message"`
	Type            string     `gorm:"size:50" json:"type"`
	Priority        Priority   `gorm:"size:20" json:"priority"`
	TTLMinutes      int        `json:"ttl_minutes,omitempty"`
	Kind            string     `gorm:"size:20;not null" json:"kind"`
	TimeOfDay       string     `gorm:"size:5" json:"time_of_day,omitempty"`
	Weekday         int        `json:"weekday"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	NextFireAt      time.Time  `gorm:"index" json:"next_fire_at"`
	Active          bool       `gorm:"index" json:"active"`
	CreatedAt       time.Time  `json:"created_at"`

	Actions []NotificationAction `gorm:"serializer:json" json:"actions,omitempty"`
}
