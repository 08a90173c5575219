package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/repository"
)

const (
	settingsKeyPrefix  = "settings:user:"
	defaultSettingsTTL = 10 * time.Minute
)

var _ repository.SettingsStore = (*SettingsCache)(nil)

// SettingsCache is a read-through Redis cache in front of a settings
// store. Redis errors fall through to the store.
type SettingsCache struct {
	next   repository.SettingsStore
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewSettingsCache wraps next. A non-positive ttl uses the default.
func NewSettingsCache(next repository.SettingsStore, client *redis.Client, ttl time.Duration, log *zap.Logger) *SettingsCache {
	if ttl <= 0 {
		ttl = defaultSettingsTTL
	}
	return &SettingsCache{next: next, client: client, ttl: ttl, log: log}
}

func settingsKey(userID uint) string {
	return settingsKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (c *SettingsCache) GetSettings(ctx context.Context, userID uint) (models.UserSettings, error) {
	key := settingsKey(userID)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s models.UserSettings
		if err := json.Unmarshal(data, &s); err == nil {
			s.UserID = userID
			return s, nil
		}
		c.log.Warn("discarding malformed cached settings", zap.String("key", key))
	case err != redis.Nil:
		c.log.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
	}

	s, err := c.next.GetSettings(ctx, userID)
	if err != nil {
		return s, err
	}
	c.set(ctx, key, s)
	return s, nil
}

func (c *SettingsCache) SaveSettings(ctx context.Context, s models.UserSettings) (models.UserSettings, error) {
	saved, err := c.next.SaveSettings(ctx, s)
	if err != nil {
		return saved, err
	}
	c.set(ctx, settingsKey(saved.UserID), saved)
	return saved, nil
}

func (c *SettingsCache) set(ctx context.Context, key string, s models.UserSettings) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// NewClient connects to addr and verifies it with PING.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
