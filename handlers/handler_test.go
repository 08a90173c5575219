package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/nodebook-study/auth"
	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/handlers"
	"github.com/andrewpaige1/nodebook-study/middleware"
	"github.com/andrewpaige1/nodebook-study/models"
	"github.com/andrewpaige1/nodebook-study/notify"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
	"github.com/andrewpaige1/nodebook-study/testutil"
)

var authCfg = config.AuthConfig{
	Secret:     "handler-secret",
	Issuer:     "nodebook",
	Audience:   "nodebook-api",
	CookieName: "auth_token",
	ClockSkew:  time.Minute,
}

type fixture struct {
	srv       *httptest.Server
	db        *gorm.DB
	sessions  *study.Manager
	notifier  *notify.Dispatcher
	persister *study.Persister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	clk := clock.Real()

	settings := repository.NewSettingsRepository(db)
	progress := repository.NewProgressRepository(db, settings, clk, log)
	inbox := repository.NewNotificationRepository(db, clk)
	persister := study.NewPersister(progress, log, 64, time.Second)
	sessions := study.NewManager(persister, clk, log, study.ManagerOptions{Seed: 7})
	hub := notify.NewHub(8, log)
	notifier := notify.NewDispatcher(inbox, notify.NewLogPusher(log), hub, clk, log, notify.DispatcherOptions{DefaultTTL: time.Hour})

	h := &handlers.DBHandler{
		DB:       db,
		Log:      log,
		Clock:    clk,
		Sessions: sessions,
		Progress: progress,
		Settings: settings,
		Inbox:    inbox,
		Notifier: notifier,
		Hub:      hub,
	}

	ensure, err := middleware.EnsureValidToken(authCfg, log)
	require.NoError(t, err)
	sync := &middleware.UserSync{DB: db, Log: log}
	withUser := func(next http.HandlerFunc) http.HandlerFunc {
		return ensure(sync.Wrap(next)).ServeHTTP
	}

	srv := httptest.NewServer(h.Routes(withUser))
	t.Cleanup(func() {
		srv.Close()
		notifier.Close()
		sessions.Close()
		persister.Close()
	})

	return &fixture{srv: srv, db: db, sessions: sessions, notifier: notifier, persister: persister}
}

// login mints a token and makes sure the user row exists.
func (f *fixture) login(t *testing.T, subject, nickname string) (string, models.User) {
	t.Helper()
	tok, err := auth.CreateToken(authCfg, subject, nickname, time.Hour)
	require.NoError(t, err)

	resp, _ := f.do(t, http.MethodGet, "/api/users/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, f.db.Where("auth0_id = ?", subject).First(&user).Error)
	return tok, user
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
