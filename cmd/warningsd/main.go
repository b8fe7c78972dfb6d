// Package main is the entry point for the warnings service. It loads
// configuration, connects to services, sets up routing, and starts the
// HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/cache"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/category"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/config"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/database"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/escalation"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/handlers"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/notify"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/perms"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/router"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/session"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/warn"
)

// notifyQueueBuffer bounds how many pending notification tasks may queue
// before Publish blocks.
const notifyQueueBuffer = 64

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (group cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Data stores.
	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)
	definitionStore := store.NewDefinitionStore(db)
	warningStore := store.NewWarningStore(db)
	actionStore := store.NewActionStore(db)
	changeStore := store.NewChangeStore(db)
	phraseStore := store.NewPhraseStore(db)
	alertStore := store.NewAlertStore(db)
	conversationStore := store.NewConversationStore(db)
	threadStore := store.NewThreadStore(db)

	// Permission oracle backed by the Valkey group cache.
	groupCache := cache.NewGroupCache(valkeyClient)
	permsService := perms.NewService(userStore, groupCache)

	// Domain services.
	categoryService := category.NewService(db, categoryStore, definitionStore, actionStore, phraseStore, permsService)
	engine := escalation.New(warningStore, actionStore, permsService)

	// Notification sinks and the post-commit delivery queue.
	alerter := notify.NewAlerter(alertStore)
	conversations := notify.NewConversations(conversationStore, alertStore)
	threads := notify.NewThreads(threadStore, alertStore)
	queue := notify.NewQueue(notifyQueueBuffer)
	defer queue.Close()

	warner := warn.NewWarner(db, userStore, definitionStore, warningStore, phraseStore, permsService,
		alerter, conversations, threads, queue, warn.Options{
			AnonymizeConversations: cfg.AnonymizeConversations,
			AnonymousUsername:      cfg.AnonymousUsername,
			SummaryForumID:         cfg.SummaryForumID,
			SummaryThreadID:        cfg.SummaryThreadID,
			PostingUserID:          cfg.PostingUserID,
		})

	// Handler groups.
	authHandlers := handlers.NewAuth(sessionStore, userStore)
	categoryHandlers := handlers.NewCategories(categoryService, categoryStore, phraseStore, permsService)
	warningHandlers := handlers.NewWarnings(warner, categoryService, warningStore, definitionStore, actionStore, changeStore, engine, permsService)

	// Chi router with all middleware and routes.
	r := router.New(sessionStore, authHandlers, categoryHandlers, warningHandlers)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
