package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/models"
)

// NotificationRepository is the inbox and reminder schedule store.
type NotificationRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewNotificationRepository(db *gorm.DB, clk clock.Clock) *NotificationRepository {
	return &NotificationRepository{db: db, clock: clk}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns unexpired notifications, newest first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("(expires_at IS NULL OR expires_at > ?)", r.clock.Now())
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	notifications := []models.Notification{}
	err := q.Order("created_at desc").Order("id desc").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Where("(expires_at IS NULL OR expires_at > ?)", r.clock.Now()).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID uint, publicID string) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) DeleteNotification(ctx context.Context, userID uint, publicID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired purges notifications whose expiry is at or before now.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// SaveSchedule inserts a new schedule or updates an existing one.
func (r *NotificationRepository) SaveSchedule(ctx context.Context, s *models.ReminderSchedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *NotificationRepository) ActiveSchedules(ctx context.Context) ([]models.ReminderSchedule, error) {
	var schedules []models.ReminderSchedule
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("next_fire_at").Find(&schedules).Error
	return schedules, err
}

func (r *NotificationRepository) ListSchedules(ctx context.Context, userID uint) ([]models.ReminderSchedule, error) {
	schedules := []models.ReminderSchedule{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("next_fire_at").
		Find(&schedules).Error
	return schedules, err
}

// DeactivateSchedule marks a user's schedule inactive.
func (r *NotificationRepository) DeactivateSchedule(ctx context.Context, userID uint, publicID string) error {
	result := r.db.WithContext(ctx).Model(&models.ReminderSchedule{}).
		Where("user_id = ? AND public_id = ? AND active = ?", userID, publicID, true).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceSchedule moves an active schedule to its next fire time, or ends
// it. A schedule deactivated in the meantime is left alone.
func (r *NotificationRepository) AdvanceSchedule(ctx context.Context, publicID string, next time.Time, active bool) error {
	return r.db.WithContext(ctx).Model(&models.ReminderSchedule{}).
		Where("public_id = ? AND active = ?", publicID, true).
		Updates(map[string]interface{}{"next_fire_at": next, "active": active}).Error
}
