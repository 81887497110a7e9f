// Concierge - embeddable assistant widget server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelora/concierge/internal/api"
	"github.com/avelora/concierge/internal/completion"
	"github.com/avelora/concierge/internal/config"
	"github.com/avelora/concierge/internal/domain"
	"github.com/avelora/concierge/internal/engine"
	"github.com/avelora/concierge/internal/identity"
	"github.com/avelora/concierge/internal/middleware"
	"github.com/avelora/concierge/internal/store"
	"github.com/avelora/concierge/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	convLog, err := engine.NewConversationLogger(engine.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := convLog.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	completer := completion.NewClient(cfg.CompletionURL, cfg.CompletionTimeout)
	slog.Info("Completion client configured", "url", cfg.CompletionURL, "timeout", cfg.CompletionTimeout)

	// Session template: every widget session gets the completion client,
	// the demo voice transcriber and the persistence hooks.
	mgr := engine.NewManager(engine.Options{
		Completer:  completer,
		ThinkDelay: cfg.ThinkDelay,
		BasePoints: cfg.BasePoints,
		Logger:     logger,
		Transcriber: engine.SimulatedTranscriber{
			Delay:      cfg.ThinkDelay,
			Transcript: "What can you help me with?",
		},
		OnAward: func(userID string, points int, newBadges []string, interactions int) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.AddReward(ctx, userID, points, newBadges, interactions); err != nil {
				slog.Warn("Failed to persist reward totals", "user_id", userID, "error", err)
			}
		},
		OnFeedback: func(userID string, variant domain.VariantID, text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			fb := &domain.FeedbackSubmission{UserID: userID, Variant: variant, Content: text}
			if err := repo.SaveFeedback(ctx, fb); err != nil {
				slog.Warn("Failed to persist feedback", "user_id", userID, "error", err)
			}
		},
		ConversationLog: convLog,
	}, logger)
	defer mgr.CloseAll()

	// Initialize handlers.
	baseHandler := api.NewHandler(mgr, repo)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(corsOrigins(cfg)))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// WebSocket event stream per widget.
	r.Get("/ws/widgets/{variant}/events", baseHandler.Events)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0 so WebSocket event streams are not cut off.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr.StartSweeper(ctx, cfg.SessionTTL)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL != "" {
		return []string{cfg.FrontendURL}
	}
	return []string{"*"}
}
