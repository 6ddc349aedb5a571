package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/config"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/clock"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/random"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/auth"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/devtools"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/session"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/memory"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/postgres"
	redisstorage "github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/redis"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/sqlite"
)

const storageInitTimeout = 15 * time.Second

// App contains all wired application components
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService       *auth.Service
	SessionController *session.Controller
	DevTools          *devtools.Service

	injector *do.RootScope
}

// New creates a new application with all dependencies wired. A nil logger
// discards output.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue[clock.Clock](injector, clock.New())
	do.ProvideValue[random.Random](injector, random.New())
	do.Provide(injector, provideStorage)

	return newWithInjector(injector)
}

// newWithDependencies creates an App around the given dependencies (useful for testing)
func newWithDependencies(
	cfg *config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) (*App, error) {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, clk)
	do.ProvideValue(injector, rnd)
	do.ProvideValue(injector, store)

	return newWithInjector(injector)
}

// registerServices adds the domain services on top of the base dependencies
func registerServices(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*auth.Service, error) {
		store := do.MustInvoke[storage.Storage](i)
		rnd := do.MustInvoke[random.Random](i)
		return auth.New(store, rnd), nil
	})
	do.Provide(injector, func(i do.Injector) (*session.Controller, error) {
		store := do.MustInvoke[storage.Storage](i)
		authService := do.MustInvoke[*auth.Service](i)
		clk := do.MustInvoke[clock.Clock](i)
		rnd := do.MustInvoke[random.Random](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return session.NewController(store, authService, clk, rnd, logger), nil
	})
	do.Provide(injector, func(i do.Injector) (*devtools.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[storage.Storage](i)
		controller := do.MustInvoke[*session.Controller](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return devtools.New(cfg.DevMode, store, controller, logger), nil
	})
}

func newWithInjector(injector *do.RootScope) (*App, error) {
	registerServices(injector)

	store, err := do.Invoke[storage.Storage](injector)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:            do.MustInvoke[*config.Config](injector),
		Logger:            do.MustInvoke[*slog.Logger](injector),
		Storage:           store,
		Clock:             do.MustInvoke[clock.Clock](injector),
		Random:            do.MustInvoke[random.Random](injector),
		AuthService:       do.MustInvoke[*auth.Service](injector),
		SessionController: do.MustInvoke[*session.Controller](injector),
		DevTools:          do.MustInvoke[*devtools.Service](injector),
		injector:          injector,
	}
	return app, nil
}

// Close releases the storage backend and shuts the injector down
func (a *App) Close() error {
	var errs []error
	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	if report := a.injector.Shutdown(); report != nil && !report.Succeed {
		errs = append(errs, report)
	}
	return errors.Join(errs...)
}

// provideStorage opens the backend selected by the config's StorageType
func provideStorage(i do.Injector) (storage.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	ctx, cancel := context.WithTimeout(context.Background(), storageInitTimeout)
	defer cancel()

	logger.Info("opening storage", slog.String("storage_type", cfg.StorageType))

	switch cfg.StorageType {
	case config.StorageTypeMemory:
		return memory.New(), nil
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.PoolSize = cfg.RedisPoolSize
		redisCfg.SessionTTL = cfg.RedisSessionTTL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return store, nil
	case config.StorageTypePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageTypeSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.StorageType)
	}
}
