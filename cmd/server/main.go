package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/preflight/internal/ai"
	"github.com/yegors/preflight/internal/ai/gemini"
	"github.com/yegors/preflight/internal/ai/openai"
	"github.com/yegors/preflight/internal/airports"
	"github.com/yegors/preflight/internal/api"
	"github.com/yegors/preflight/internal/auth"
	"github.com/yegors/preflight/internal/briefing"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/internal/notify"
	"github.com/yegors/preflight/internal/storage/sqlite"
	"github.com/yegors/preflight/internal/summary"
	"github.com/yegors/preflight/internal/templating"
	"github.com/yegors/preflight/internal/weather"
	"github.com/yegors/preflight/internal/websocket"
	"github.com/yegors/preflight/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting preflight server",
		logger.String("version", Version),
		logger.String("config_path", *configPath))

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Server fully stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Storage.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	flights, err := sqlite.NewFlightStorage(db, log)
	if err != nil {
		return fmt.Errorf("failed to create flight storage: %w", err)
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
	directory, err := airports.Load(loadCtx, cfg.Airports.DBPath, cfg.Airports.DownloadURL, nil, log)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("failed to load airports: %w", err)
	}

	weatherService := weather.NewService(cfg.Weather, log)

	provider, err := newChatProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	summarizer := summary.New(provider, templating.NewEngine(log), summary.Config{
		Provider:    cfg.AI.Provider,
		Model:       chatModel(cfg),
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		PromptPath:  cfg.AI.PromptPath,
	}, log)

	briefingService := briefing.NewService(directory, weatherService, summarizer, briefing.ConfigFrom(cfg), log)

	verifier := auth.NewVerifier(cfg.Auth, log)
	wsServer := websocket.NewServer(websocket.AuthenticatorFunc(func(r *http.Request) (string, error) {
		u, err := verifier.Authenticate(r)
		return u.ID, err
	}), cfg.Server.CORSAllowedOrigins, log)

	notifier := notify.NewService(time.Duration(cfg.Notifications.DurationSeconds)*time.Second, cfg.Notifications.MaxPerUser, log)
	notifier.SetBroadcaster(wsServer)

	handler, err := api.NewHandler(flights, briefingService, directory, notifier, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}
	router := api.NewRouter(handler, verifier, wsServer.HandleConnection, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsServer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		notifier.Run(gctx, time.Second)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				weatherService.Cache().Prune()
			}
		}
	})
	g.Go(func() error {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// newChatProvider returns nil when summaries should use the built-in fallback
func newChatProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (ai.ChatProvider, error) {
	if !cfg.AIConfigured() {
		log.Info("AI summaries disabled, using fallback summaries", logger.String("provider", cfg.AI.Provider))
		return nil, nil
	}
	switch cfg.AI.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.AI.GeminiAPIKey, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	case "openai":
		return openai.NewClient(cfg.AI.OpenAIAPIKey, log, cfg.AI.OpenAIBaseURL), nil
	}
	return nil, nil
}

func chatModel(cfg *config.Config) string {
	if cfg.AI.Provider == "openai" {
		return cfg.AI.OpenAIModel
	}
	return cfg.AI.GeminiModel
}
