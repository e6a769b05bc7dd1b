package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"romy/backend/internal/api"
	"romy/backend/internal/config"
	"romy/backend/internal/database"
	"romy/backend/internal/extract"
	"romy/backend/internal/llm"
	"romy/backend/internal/ratelimit"
	"romy/backend/internal/repository"
	"romy/backend/internal/service"
	"romy/backend/internal/suggest"
)

// App holds the wired application: the open database handle, the optional
// Redis connection and the configured HTTP server.
type App struct {
	DB     *sql.DB
	Redis  *redis.Client
	Server *http.Server
}

// NewApp wires every component together from configuration. It does not start
// the server; callers own the lifecycle (and tests can inspect the wiring
// without binding a port).
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}

	// Redis backs the guest rate limiter only, and only for cloud
	// deployments. Self-hosted installs run without it.
	var redisClient *redis.Client
	if cfg.CloudDeployment && cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	limiter := ratelimit.NewGuestLimiter(redisClient, cfg.GuestDailyLimit, cfg.CloudDeployment)

	repo := repository.NewSQLiteRepository(db)
	provider := llm.NewOllamaProvider(cfg.LLMURL)
	extractor := extract.NewProcessor(nil)
	suggester := suggest.NewGenerator(provider, cfg.SupportModel)
	prefsService := service.NewPreferencesService(repo)

	chatService := service.NewChatService(
		repo, provider, extractor, suggester, prefsService,
		cfg.MainModel, cfg.SupportModel, cfg.SystemPrompt,
	)
	uploadService := service.NewUploadService(cfg.UploadDir, cfg.PublicURL)
	transcriptionService := service.NewTranscriptionService(provider)

	chatHandler := api.NewChatHandler(chatService, prefsService)
	mediaHandler := api.NewMediaHandler(uploadService, transcriptionService)
	router := api.NewRouter(chatHandler, mediaHandler, limiter, uploadService.Dir())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}

	return &App{DB: db, Redis: redisClient, Server: server}, nil
}

// Close releases the app's long-lived resources.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}
}

// Run is the process entry point: it loads configuration, wires the app and
// serves until the process receives an interrupt. The return value is the
// process exit code.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource()

	waitForLLM(cfg.LLMURL)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to build application", "error", err)
		return 1
	}
	defer app.Close()
	slog.Info("Successfully connected to SQLite database.")
	if app.Redis != nil {
		slog.Info("Guest rate limiting enabled", "redis_addr", cfg.RedisAddr, "daily_limit", cfg.GuestDailyLimit)
	}

	// Serve in the background so the main goroutine can wait for a shutdown
	// signal.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort)
		errCh <- app.Server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Server.Shutdown(ctx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func waitForLLM(llmURL string) {
	slog.Info("Waiting for the model server to be ready...")
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		resp, err := client.Get(llmURL)
		if err == nil && resp.StatusCode == http.StatusOK {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in model server health check", "error", bErr)
			}
			slog.Info("Model server is ready.")
			return
		}
		if resp != nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in model server health check (retry path)", "error", bErr)
			}
		}
		slog.Debug("Model server not ready yet, retrying in 3 seconds...", "url", llmURL, "error", err)
		time.Sleep(3 * time.Second)
	}
}
