// Package bootstrap wires the application together: logger, config, the
// two persistence backends behind the per-request selector, the realtime
// bus, the websocket hub, and the API server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campuswatch/api"
	"campuswatch/config"
	"campuswatch/realtime"
	"campuswatch/service"
	"campuswatch/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App represents the campuswatch application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	MongoDB  *storage.MongoDB
	Selector *storage.Selector

	Redis *redis.Client
	Bus   *realtime.Bus

	Hub       *api.Hub
	APIServer *api.API

	serverErrCh chan error
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{serverErrCh: make(chan error, 1)}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("campuswatch starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// The ephemeral backend always exists: it is the degraded-mode target
	// and carries the seeded privileged accounts.
	memory := storage.NewMemoryStore(sugar)

	// The durable backend is optional at startup. An unreachable database
	// is not fatal; the selector routes around it until it comes back.
	var durable storage.Store
	var health storage.HealthChecker
	if cfg.MongoDB.Enabled {
		mongoDB, err := storage.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize, sugar)
		if err != nil {
			sugar.Warnw("MongoDB unavailable at startup, continuing on ephemeral storage", "error", err)
		} else {
			app.MongoDB = mongoDB
			mongoStore := storage.NewMongoStore(mongoDB, sugar)
			if err := mongoStore.EnsureIndexes(ctx); err != nil {
				sugar.Warnw("Failed to ensure MongoDB indexes", "error", err)
			}
			durable = mongoStore
			health = mongoDB
		}
	} else {
		sugar.Info("MongoDB disabled, running on ephemeral storage")
	}

	app.Selector = storage.NewSelector(durable, health, memory, cfg.MongoDB.ProbeTimeout, sugar)

	// Realtime bus: Redis-backed when configured, in-process otherwise.
	if cfg.Redis.Enabled {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			sugar.Warnw("Redis unavailable, falling back to in-process event delivery", "error", err)
			app.Redis.Close()
			app.Redis = nil
		}
	}
	app.Bus = realtime.NewBus(app.Redis, sugar)

	// Services write first, then publish through the bus.
	reportService := service.NewReportService(app.Selector, app.Bus, sugar)
	chatService := service.NewChatService(app.Selector, app.Bus, sugar)
	authService := service.NewAuthService(app.Selector, sugar)
	notificationService := service.NewNotificationService(app.Selector, app.Bus, sugar)
	adminService := service.NewAdminService(app.Selector, app.Bus, sugar)

	app.Hub = api.NewHub(chatService, sugar, ctx)
	app.Bus.SetHandler(app.Hub.HandleEvent)

	app.APIServer = api.NewAPI(
		authService,
		reportService,
		chatService,
		notificationService,
		adminService,
		app.Selector,
		app.Hub,
		cfg,
		sugar,
	)

	return app, nil
}

// Start launches the hub, the bus subscription, and the API server.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Start()
	a.Bus.Start(ctx)

	go func() {
		if err := a.APIServer.Start(a.Config.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serverErrCh <- err
		}
	}()

	a.Sugar.Infow("campuswatch started", "addr", a.Config.ListenAddr())
}

// WaitForShutdown blocks until a termination signal or a server failure.
func (a *App) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
		return nil
	case err := <-a.serverErrCh:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Shutdown tears components down in reverse order of startup.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorw("API server shutdown failed", "error", err)
	}

	a.Bus.Stop()
	a.Hub.Stop()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Sugar.Errorw("Redis close failed", "error", err)
		}
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			a.Sugar.Errorw("MongoDB close failed", "error", err)
		}
	}

	a.Sugar.Info("campuswatch stopped")
	a.Logger.Sync()
}
