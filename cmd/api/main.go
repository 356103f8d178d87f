package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/api"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/assist"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/auth"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/completion"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/config"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/database"
	mw "github.com/JuJa1021101/Vue3-notebook-AI/internal/middleware"
	inats "github.com/JuJa1021101/Vue3-notebook-AI/internal/nats"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/quota"
	iredis "github.com/JuJa1021101/Vue3-notebook-AI/internal/redis"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/server"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/usage"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient  *inats.Client
		usageEvents usage.EventPublisher
		quotaEvents assist.QuotaEvents
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher := natsClient.Publisher()
		usageEvents = publisher
		quotaEvents = publisher
	} else {
		slog.Info("NATS not configured, usage events disabled")
	}

	loc := cfg.Quota.Location()

	// Users & quota
	userSvc := users.NewService(users.NewRepository(pool))
	quotaSvc := quota.NewService(quota.NewRepository(pool), loc)

	// Settings
	settingsSvc := settings.NewService(settings.NewRepository(pool), settings.NewCache(redisClient))

	// Upstream model
	llm, err := completion.New(completion.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		slog.Error("creating completion client", "error", err)
		os.Exit(1)
	}

	// Usage accounting
	unitPrice := decimal.RequireFromString(cfg.AI.UnitPrice)
	recorder := usage.NewRecorder(usage.NewRepository(pool), usageEvents, unitPrice, loc)

	// Assist
	assistSvc := assist.NewService(assist.Deps{
		Subscriptions: userSvc,
		Quota:         quotaSvc,
		Settings:      settingsSvc,
		Completer:     llm,
		Recorder:      recorder,
		QuotaEvents:   quotaEvents,
		System: settings.System{
			Provider: cfg.AI.Provider,
			Model:    cfg.AI.Model,
			TopP:     cfg.AI.TopP,
		},
	})
	assistHandler := assist.NewHandler(assistSvc)

	// Auth & burst limiting
	verifier := auth.NewVerifier(cfg.JWT.AccessSecret)
	limiter := mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec, userKey)

	// Router
	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AIRateLimiter:      limiter.Middleware,
	}, api.HandlerSet{
		ProcessAI:      assistHandler.Process,
		GetAISettings:  assistHandler.GetSettings,
		UpdateSettings: assistHandler.UpdateSettings,
		AIStats:        assistHandler.Stats,

		AuthMiddleware: auth.Middleware(verifier),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// userKey buckets burst limiting by authenticated user, falling back to IP.
func userKey(r *http.Request) string {
	if id, ok := auth.UserID(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + mw.ClientIP(r)
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
