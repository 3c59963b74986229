// Package tipsapi assembles the tips backend: datastore, session manager,
// access gate, tipster catalogue, HTTP surface and the session sweeper.
package tipsapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	fiberadapter "github.com/lborres/tipsapi/adapters/fiber"
	"github.com/lborres/tipsapi/adapters/sqldb"
	"github.com/lborres/tipsapi/config"
	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/crypto"
	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/lborres/tipsapi/pkg/metrics"
	"github.com/lborres/tipsapi/services"
)

// Version is reported by /health. Overridden at link time.
var Version = "dev"

// Store is everything the services need from the datastore.
type Store interface {
	core.AuthStorage
	core.TipsterStorage
	core.MatchStorage
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*sqldb.Adapter)(nil)

type App struct {
	cfg      *config.Config
	store    Store
	http     *fiber.App
	sessions *services.SessionManager
	sweeper  *services.Sweeper
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Open connects to the configured database, applies migrations when
// enabled, and builds the App on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	store, err := sqldb.Open(ctx, sqldb.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Std(),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("database migrations applied", zap.String("driver", string(store.Dialect())))
	}

	app, err := New(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// New wires the services and HTTP routes over store. The bootstrap admin is
// created here when enabled and no admin exists yet.
func New(ctx context.Context, cfg *config.Config, store Store, logger *zap.Logger) (*App, error) {
	if store == nil {
		return nil, core.ErrStorageRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	hasher, err := crypto.NewMultiHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		return nil, err
	}
	codec, err := crypto.NewJWTCodec(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	queryTimeout := cfg.Database.QueryTimeout.Std()

	sessions, err := services.NewSessionManager(cfg.SessionConfig(), store, codec, hasher, m, logger)
	if err != nil {
		return nil, err
	}
	accounts := services.NewAuthService(store, hasher, queryTimeout, logger)
	tipsters := services.NewTipsterService(store, queryTimeout, logger)
	matches := services.NewMatchService(store, queryTimeout, logger)

	if cfg.Auth.BootstrapAdmin.Enabled {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Admin()); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	sweeper, err := services.NewSweeper(sessions, cfg.Auth.CleanupSchedule, logger)
	if err != nil {
		return nil, err
	}

	registry, err := services.NewEndpointRegistry()
	if err != nil {
		return nil, err
	}

	extractor, err := fiberadapter.NewTokenExtractor(cfg.Auth.TokenTransport, cfg.Auth.CookieName)
	if err != nil {
		return nil, err
	}

	httpApp := fiberadapter.NewApp(fiberadapter.ServerOptions{
		AppName:     "tipsapi",
		BodyLimit:   cfg.Server.BodyLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		GlobalLimit: fiberadapter.RateLimit{
			Max:    cfg.RateLimit.GlobalMax,
			Window: cfg.RateLimit.GlobalWindow.Std(),
		},
		Metrics: m,
		Logger:  logger,
	})

	adapter, err := fiberadapter.New(httpApp, fiberadapter.Options{
		BasePath:  cfg.Server.BasePath,
		Version:   Version,
		Extractor: extractor,
		Cookie: fiberadapter.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Server.Production(),
		},
		AuthLimit: fiberadapter.RateLimit{
			Max:    cfg.RateLimit.AuthMax,
			Window: cfg.RateLimit.AuthWindow.Std(),
		},
		Sessions: sessions,
		Accounts: accounts,
		Tipsters: tipsters,
		Matches:  matches,
		Database: store,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if err := adapter.RegisterRoutes(registry); err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		store:    store,
		http:     httpApp,
		sessions: sessions,
		sweeper:  sweeper,
		metrics:  m,
		logger:   logger,
	}, nil
}

// HTTP returns the fiber application.
func (a *App) HTTP() *fiber.App {
	return a.http
}

// Sessions returns the session manager.
func (a *App) Sessions() *services.SessionManager {
	return a.sessions
}

// Run starts the sweeper and the HTTP listener and blocks until ctx is done
// or the listener fails. It then shuts everything down within the configured
// shutdown timeout and closes the store.
func (a *App) Run(ctx context.Context) error {
	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	if n := a.sweeper.RunOnce(ctx); n > 0 {
		a.logger.Info("startup session sweep", zap.Int64("deleted", n))
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.http.Listen(a.cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	a.logger.Info("server listening",
		zap.String("addr", a.cfg.Server.Addr),
		zap.String("environment", a.cfg.Server.Environment),
		zap.String("version", Version),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err := <-listenErr:
		if err != nil {
			runErr = fmt.Errorf("listen: %w", err)
		}
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	var errs []error
	if err := a.http.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if err := a.sweeper.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sweeper: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
