package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yukikurage/intake-workflow-api/internal/config"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
	"github.com/yukikurage/intake-workflow-api/internal/database"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/handlers"
	"github.com/yukikurage/intake-workflow-api/internal/notifications"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
	"github.com/yukikurage/intake-workflow-api/internal/services"
	"github.com/yukikurage/intake-workflow-api/internal/telemetry"
)

var version = "dev"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := connect()
	if err != nil {
		return err
	}

	if err := telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.OTelEnabled,
		Stdout:      cfg.OTelStdout,
		ServiceName: serviceName,
		Version:     version,
	}); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	// Run migrations
	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	// Notification fan-out
	queue := events.NewQueue()
	notificationRepo := repository.NewNotificationRepository(db)
	var emailSink notifications.EmailSink = notifications.NewOutboxEmailSink(repository.NewEmailOutboxRepository(db))
	if cfg.Dispatcher.EmailSink == "log" {
		emailSink = notifications.LogEmailSink{}
	}
	dispatcher := notifications.NewDispatcher(queue,
		notifications.NewStoreNotifier(notificationRepo),
		emailSink,
		notifications.NewDirectoryResolver(repository.NewActorRepository(db)),
		notifications.Options{
			Workers:          cfg.Dispatcher.Workers,
			Concurrency:      cfg.Dispatcher.Concurrency,
			RecipientTimeout: cfg.Dispatcher.RecipientTimeout,
			DedupWindow:      cfg.Dispatcher.DedupWindow,
			BaseURL:          cfg.AppBaseURL,
		})
	dispatcher.Start(context.WithoutCancel(ctx))

	taskService := services.NewTaskService(repository.NewTaskStore(db), queue, policy,
		services.WithMaxAttempts(cfg.WriteMaxAttempts))

	router, err := newRouter(cfg, taskService, notificationRepo)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			dispatcher.Close()
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Deliver what is already queued before stopping the workers
	if err := dispatcher.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Int("pending", queue.Len()).Msg("dispatcher did not drain")
	}
	dispatcher.Close()
	return nil
}

func newRouter(cfg *config.Config, taskService *services.TaskService, notificationRepo repository.NotificationRepository) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		redisAddr,                 // Redis address from config
		"",                        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	isProduction := cfg.GinMode == gin.ReleaseMode
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, taskService, notificationRepo)
	return r, nil
}

// requestLogger logs one line per request through zerolog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
