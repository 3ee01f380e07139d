package main

import (
	"context"
	"log"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/redis"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository/memory"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/server"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/storage"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/database"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const migrationsDir = "migrations"

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var backends server.Backends

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		l.Warnf("Using the in-memory store, data is lost on restart")
		backends.Repos = memory.NewStore().Repositories()
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.ApplyMigrations(migrationsDir); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		backends.Repos = repository.NewPostgresRepositories(db)
		backends.HealthCheck = database.HealthCheck
	}

	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, redis.ConfigFrom(cfg))
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()

		limits := redis.DefaultRateLimitConfig()
		if cfg.MessageRateLimit > 0 {
			limits.MessageLimit = cfg.MessageRateLimit
		}
		if window := cfg.MessageRateWindow(); window > 0 {
			limits.MessageWindow = window
		}

		backends.Broker = events.NewRedisBroker(client, l)
		backends.Registry = redis.NewPresenceRegistry(client, 0)
		backends.Limiter = redis.NewRateLimiter(client, limits)
		l.Infof("Redis enabled: cross-process delivery, presence and rate limiting are on")
	} else {
		backends.Broker = events.NewLocalBroker()
		backends.Registry = registry.NewMemory()
	}
	defer backends.Broker.Close()

	if cfg.S3Enabled() {
		client, err := storage.NewClient(ctx, storage.S3ConfigFrom(cfg))
		if err != nil {
			log.Fatalf("Failed to create S3 client: %v", err)
		}
		backends.Presigner = client
	}

	app, err := server.Assemble(cfg, l, backends)
	if err != nil {
		log.Fatalf("Failed to assemble server: %v", err)
	}
	if err := app.RunWorkers(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	if err := app.Server.Start(); err != nil {
		l.Errorf("Server stopped with error: %v", err)
	}
}
