package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/models"
)

// Permission is the state of the native push channel.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionDefault     Permission = "default"
	PermissionUnsupported Permission = "unsupported"
)

// ErrUnsupported is returned when no native push channel is configured.
var ErrUnsupported = errors.New("notify: native push unsupported")

// ParsePermission accepts granted, denied and default; anything else is
// treated as default.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionDefault
	}
}

// Pusher delivers notifications outside the app.
type Pusher interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Push(ctx context.Context, n models.Notification) error
}

var (
	_ Pusher = (*LogPusher)(nil)
	_ Pusher = (*WebhookPusher)(nil)
)

// LogPusher writes notifications to the log. Permission is always granted.
type LogPusher struct {
	log *zap.Logger
}

func NewLogPusher(log *zap.Logger) *LogPusher {
	return &LogPusher{log: log}
}

func (p *LogPusher) Permission() Permission { return PermissionGranted }

func (p *LogPusher) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (p *LogPusher) Push(ctx context.Context, n models.Notification) error {
	p.log.Info("push notification",
		zap.Uint("user_id", n.UserID),
		zap.String("id", n.PublicID),
		zap.String("title", n.Title),
		zap.String("priority", string(n.Priority)),
	)
	return nil
}

// WebhookPusher POSTs notifications as JSON to a fixed URL.
type WebhookPusher struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	perm Permission
}

// NewWebhookPusher returns a pusher for url. An empty url yields a pusher
// whose permission is unsupported.
func NewWebhookPusher(url string, perm Permission, client *http.Client) *WebhookPusher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if url == "" {
		perm = PermissionUnsupported
	}
	return &WebhookPusher{url: url, client: client, perm: perm}
}

func (p *WebhookPusher) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perm
}

// RequestPermission resolves default to granted. Denied stays denied.
func (p *WebhookPusher) RequestPermission(ctx context.Context) (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.perm {
	case PermissionUnsupported:
		return p.perm, ErrUnsupported
	case PermissionDefault:
		p.perm = PermissionGranted
	}
	return p.perm, nil
}

type webhookPayload struct {
	UserID       uint                `json:"user_id"`
	Notification models.Notification `json:"notification"`
}

func (p *WebhookPusher) Push(ctx context.Context, n models.Notification) error {
	if p.Permission() != PermissionGranted {
		return fmt.Errorf("webhook push: permission %s", p.Permission())
	}

	body, err := json.Marshal(webhookPayload{UserID: n.UserID, Notification: n})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook push: unexpected status %d", resp.StatusCode)
	}
	return nil
}
