package server

import (
	"context"
	"fmt"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/handler"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/proxy"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/redis"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/storage"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/websocket"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// Backends are the infrastructure choices made by the caller. Limiter and
// Presigner may be nil; Broker and Registry may not.
type Backends struct {
	Repos       repository.Repositories
	Broker      events.Broker
	Registry    registry.Registry
	Limiter     *redis.RateLimiter
	Presigner   storage.Presigner
	HealthCheck func() error
}

// App is a fully wired API process.
type App struct {
	Server  *Server
	Hub     *websocket.Hub
	Bridge  *websocket.EventBridge
	Pairing *services.PairingService
	Auth    *services.AuthService

	cfg *config.Config
	log *logger.Logger
}

func Assemble(cfg *config.Config, l *logger.Logger, b Backends) (*App, error) {
	if b.Broker == nil || b.Registry == nil {
		return nil, fmt.Errorf("broker and registry are required")
	}
	if l == nil {
		l = logger.NewNop()
	}

	access := proxy.NewAccessControl(b.Repos.Conversations)
	publisher := services.NewEventPublisher(b.Broker, l.Named("events"))

	devices := services.NewDeviceService(b.Repos.Devices, cfg, l.Named("devices"))
	auth := services.NewAuthService(b.Repos.Users, devices, cfg, l.Named("auth"))
	conversations := services.NewConversationService(b.Repos.Conversations, b.Repos.Users, access, l.Named("conversations"))
	messages := services.NewMessageService(b.Repos.Messages, devices, access, publisher, l.Named("messages"))
	pairing := services.NewPairingService(b.Repos.Pairing, devices, auth, cfg, l.Named("pairing"))
	backups := services.NewBackupStorageService(b.Presigner)

	hub := websocket.NewHub()
	wsLog := websocket.NewWebSocketLogger(l)

	handlers := &Handlers{
		Auth:         handler.NewAuthHandler(auth),
		Device:       handler.NewDeviceHandler(devices),
		User:         handler.NewUserHandler(auth, b.Registry),
		Conversation: handler.NewConversationHandler(conversations),
		Message:      handler.NewMessageHandler(messages),
		Pairing:      handler.NewPairingHandler(pairing),
		Backup:       handler.NewBackupHandler(backups),
		WebSocket:    websocket.NewHandler(hub, auth, messages, devices, b.Registry, b.Limiter, wsLog),
	}

	srv := New(cfg, l)
	srv.SetupRoutes(handlers, Dependencies{
		Auth:        auth,
		Limiter:     b.Limiter,
		HealthCheck: b.HealthCheck,
	})

	return &App{
		Server:  srv,
		Hub:     hub,
		Bridge:  websocket.NewEventBridge(b.Broker, hub, wsLog),
		Pairing: pairing,
		Auth:    auth,
		cfg:     cfg,
		log:     l,
	}, nil
}

// RunWorkers starts the hub, the broker bridge and the pairing token
// sweeper. They stop when ctx is done.
func (a *App) RunWorkers(ctx context.Context) error {
	go a.Hub.Run(ctx)
	if err := a.Bridge.Run(ctx); err != nil {
		return fmt.Errorf("subscribe user channels: %w", err)
	}
	go a.Pairing.RunSweeper(ctx, a.cfg.TokenGCInterval())
	return nil
}
