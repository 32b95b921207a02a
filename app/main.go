package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelpress/pixelpress/app/api"
	"github.com/pixelpress/pixelpress/app/auth"
	"github.com/pixelpress/pixelpress/app/cfg"
	"github.com/pixelpress/pixelpress/app/config"
	"github.com/pixelpress/pixelpress/app/database"
	"github.com/pixelpress/pixelpress/app/pixelfed"
	"github.com/pixelpress/pixelpress/app/syndication"
	"github.com/pixelpress/pixelpress/app/tasks"
)

// Post types the blog may syndicate. "attachment" is never eligible.
var supportedPostTypes = []string{"post", "page"}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting Pixel Press server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	settingsRepo := database.NewSettingsRepo(db)
	appRepo := database.NewAppRepo(db)
	postRepo := database.NewPostRepo(db)
	attachmentRepo := database.NewAttachmentRepo(db)

	seedSettings(settingsRepo, appCfg.SettingsFile)

	httpClient := &http.Client{}
	client := pixelfed.NewClient(httpClient, appCfg.UserAgent)

	authManager := auth.NewManager(client, settingsRepo, appRepo, appCfg.BaseUrl)

	resolver := syndication.NewImageResolver(attachmentRepo)
	composer := syndication.NewComposer(syndication.DefaultExcerptLength, syndication.NewExcerptExtractor())
	orchestrator := syndication.NewOrchestrator(settingsRepo, postRepo, attachmentRepo, client, resolver, composer)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(authManager)
	orchestrator.Defer = func(postID int64, delay time.Duration) {
		scheduler.EnqueueTaskAfter(tasks.NewSharePostTask(postID, orchestrator), delay)
	}
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(settingsRepo, postRepo, attachmentRepo, orchestrator, authManager, supportedPostTypes)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Pixel Press server started successfully")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Pixel Press server shutdown complete")
}

// seedSettings loads the optional settings file and stores it, but only when
// no settings row exists yet. Database state wins over the file on restarts.
func seedSettings(repo *database.SettingsRepo, path string) {
	seed, err := config.LoadSeedFile(path)
	if err != nil {
		slog.Warn("Failed to load settings file", "path", path, "error", err)
		return
	}

	seeded, err := repo.SeedIfEmpty(seed)
	if err != nil {
		slog.Warn("Failed to seed settings", "error", err)
		return
	}

	if seeded {
		slog.Info("Settings seeded from file", "path", path, "host", seed.Host)
	}
}
