package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/auth"
	"github.com/andrewpaige1/nodebook-study/cache"
	"github.com/andrewpaige1/nodebook-study/clock"
	"github.com/andrewpaige1/nodebook-study/config"
	"github.com/andrewpaige1/nodebook-study/handlers"
	"github.com/andrewpaige1/nodebook-study/middleware"
	"github.com/andrewpaige1/nodebook-study/notify"
	"github.com/andrewpaige1/nodebook-study/repository"
	"github.com/andrewpaige1/nodebook-study/study"
)

func main() {
	mintSubject := flag.String("mint-token", "", "print a signed token for this subject and exit (development only)")
	mintNickname := flag.String("nickname", "", "nickname claim for -mint-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *mintSubject != "" {
		if !cfg.IsDevelopment() {
			log.Fatal("-mint-token is only available in development")
		}
		token, err := auth.CreateToken(cfg.Auth, *mintSubject, *mintNickname, 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger := config.NewLogger(cfg.Env)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.DotenvLoaded {
		logger.Debug(".env file not loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	logger.Info("connected to database", zap.String("driver", cfg.DB.Driver))

	clk := clock.Real()

	var settings repository.SettingsStore = repository.NewSettingsRepository(db)
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn("redis unavailable, settings are read from the database", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer client.Close()
			settings = cache.NewSettingsCache(settings, client, cfg.Redis.TTL, logger)
			logger.Info("settings cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	progress := repository.NewProgressRepository(db, settings, clk, logger)
	persister := study.NewPersister(progress, logger, cfg.Study.QueueSize, cfg.Study.PersistTimeout)
	defer persister.Close()

	sessions := study.NewManager(persister, clk, logger, study.ManagerOptions{
		WriteTimeout:       cfg.Study.WriteTimeout,
		MatchFeedbackDelay: cfg.Study.MatchFeedbackDelay,
		IdleTTL:            cfg.Study.IdleTTL,
	})
	defer sessions.Close()
	go sessions.Run(ctx, cfg.Study.SweepInterval)

	var pusher notify.Pusher = notify.NewLogPusher(logger)
	if cfg.Notify.WebhookURL != "" {
		pusher = notify.NewWebhookPusher(cfg.Notify.WebhookURL, notify.ParsePermission(cfg.Notify.PushPermission), &http.Client{Timeout: 10 * time.Second})
	}
	hub := notify.NewHub(cfg.Notify.StreamBuffer, logger)
	inbox := repository.NewNotificationRepository(db, clk)
	notifier := notify.NewDispatcher(inbox, pusher, hub, clk, logger, notify.DispatcherOptions{DefaultTTL: cfg.Notify.DefaultTTL})
	defer notifier.Close()

	restored, err := notifier.Restore(ctx)
	if err != nil {
		logger.Error("failed to restore reminders", zap.Error(err))
	} else {
		logger.Info("restored reminders", zap.Int("count", restored))
	}
	go notifier.Run(ctx, cfg.Notify.CleanupInterval)

	authMiddleware, err := middleware.EnsureValidToken(cfg.Auth, logger)
	if err != nil {
		return err
	}
	userSync := &middleware.UserSync{DB: db, Log: logger}
	withUser := func(next http.HandlerFunc) http.HandlerFunc {
		return userSync.Wrap(next)
	}

	h := &handlers.DBHandler{
		DB:       db,
		Log:      logger,
		Clock:    clk,
		Sessions: sessions,
		Progress: progress,
		Settings: settings,
		Inbox:    inbox,
		Notifier: notifier,
		Hub:      hub,
	}
	mux := h.Routes(withUser)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-CSRFToken", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(authMiddleware(mux))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end with the signal context so Shutdown is not held open.
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
