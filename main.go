package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/access"
	"github.com/shiksha-ai/study-engine/pkg/admin"
	"github.com/shiksha-ai/study-engine/pkg/auth"
	"github.com/shiksha-ai/study-engine/pkg/config"
	"github.com/shiksha-ai/study-engine/pkg/content"
	"github.com/shiksha-ai/study-engine/pkg/handlers"
	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/localstate"
	"github.com/shiksha-ai/study-engine/pkg/logging"
	"github.com/shiksha-ai/study-engine/pkg/middleware"
	"github.com/shiksha-ai/study-engine/pkg/pilot"
	"github.com/shiksha-ai/study-engine/pkg/quota"
	"github.com/shiksha-ai/study-engine/pkg/retry"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	connStr := cfg.Database.ConnectionString()
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.String("ai_endpoint", cfg.AI.Endpoint),
		zap.String("ai_model", cfg.AI.Model))

	ctx := context.Background()

	// Migrations run over database/sql; the pool below is pgx-native.
	migrationDB, err := sql.Open("pgx", connStr)
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := store.RunMigrations(migrationDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	pg, err := store.NewPostgres(ctx, &store.PostgresConfig{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pg.Close()

	redis, err := store.NewRedis(&store.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	var st store.Store = pg
	if redis != nil {
		st = store.NewDual(pg, redis, logger)
		logger.Info("Realtime tier enabled",
			zap.String("redis", cfg.Redis.Host))
	}

	local := localstate.Open(cfg.LocalStatePath, logger)

	settingsSvc := settings.NewService(st, local, logger)
	cancelWatch, err := settingsSvc.Watch(ctx)
	if err != nil {
		logger.Warn("Settings watch unavailable, relying on per-request refresh", zap.Error(err))
	} else {
		defer cancelWatch()
	}

	llmClient, err := llm.NewClient(&llm.Config{
		Endpoint:      cfg.AI.Endpoint,
		Model:         cfg.AI.Model,
		APIKey:        cfg.AI.APIKey,
		AllowedModels: cfg.AI.AllowedModels,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}

	qc := quota.NewController(st, settingsSvc, retry.LinearConfig(2, time.Second), logger)
	resolver := content.NewResolver(st, logger)
	syllabus, err := content.NewSyllabus(st, llmClient, qc, settingsSvc, logger)
	if err != nil {
		logger.Fatal("Failed to load syllabus", zap.Error(err))
	}
	generator := content.NewGenerator(resolver, settingsSvc, llmClient, qc, cfg.Pilot.MCQConcurrency, logger)
	ledger := access.NewLedger(st, local, logger)

	scheduler := pilot.NewScheduler(pilot.NewState(), generator, syllabus, resolver, st, settingsSvc, cfg.Pilot.Concurrency, logger)

	registry := admin.NewRegistry(st, settingsSvc, generator, syllabus, logger)
	agent := admin.NewAgent(registry, llmClient, settingsSvc, logger)

	authMW := auth.NewMiddleware(auth.NewService(cfg.JWTSecret), logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewContentHandler(resolver, generator, syllabus, ledger, settingsSvc, st, logger).
		RegisterRoutes(mux, authMW.RequireUser)
	handlers.NewUserHandler(ledger, st, logger).RegisterRoutes(mux, authMW.RequireUser)
	handlers.NewPilotHandler(scheduler, logger).RegisterRoutes(mux, authMW.RequireAdmin)
	handlers.NewAdminHandler(agent, registry, logger).RegisterRoutes(mux, authMW.RequireAdmin)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting study-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
