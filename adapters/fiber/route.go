package fiber

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/lborres/tipsapi/pkg/metrics"
	"github.com/lborres/tipsapi/services"
	"go.uber.org/zap"
)

const DefaultBasePath = "/api"

// EndpointSource lists the routes to mount.
type EndpointSource interface {
	Endpoints() []*core.Endpoint
}

// RateLimit is a fixed-window request budget per client IP.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// CookieOptions controls the session cookie set at login.
type CookieOptions struct {
	Name   string
	Secure bool
}

type Options struct {
	BasePath string
	Version  string
	// Extractor defaults to the session cookie.
	Extractor TokenExtractor
	Cookie    CookieOptions
	AuthLimit RateLimit

	Sessions SessionService
	Accounts AccountService
	Tipsters TipsterService
	Matches  MatchService
	Database Pinger

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Adapter struct {
	app      *fiber.App
	basePath string
	version  string
	extract  TokenExtractor
	cookie   CookieOptions
	limit    RateLimit

	sessions SessionService
	accounts AccountService
	tipsters TipsterService
	matches  MatchService
	database Pinger
	gate     *Gate

	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(app *fiber.App, opts Options) (*Adapter, error) {
	if opts.Sessions == nil || opts.Accounts == nil || opts.Tipsters == nil || opts.Matches == nil {
		return nil, errors.New("fiber adapter: sessions, accounts, tipsters and matches services are required")
	}

	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = DefaultCookieName
	}
	if opts.Extractor == nil {
		opts.Extractor = CookieExtractor(opts.Cookie.Name)
	}
	logger := logging.OrNop(opts.Logger).Named("http")

	return &Adapter{
		app:      app,
		basePath: strings.TrimSuffix(opts.BasePath, "/"),
		version:  opts.Version,
		extract:  opts.Extractor,
		cookie:   opts.Cookie,
		limit:    opts.AuthLimit,
		sessions: opts.Sessions,
		accounts: opts.Accounts,
		tipsters: opts.Tipsters,
		matches:  opts.Matches,
		database: opts.Database,
		gate:     NewGate(opts.Sessions, opts.Extractor, opts.Metrics, logger),
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Gate exposes the access gate for routes mounted outside the registry.
func (a *Adapter) Gate() *Gate {
	return a.gate
}

func (a *Adapter) handlers() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		services.OpLogin:         a.login,
		services.OpLogout:        a.logout,
		services.OpStatus:        a.status,
		services.OpRegister:      a.register,
		services.OpListTipsters:  a.listTipsters,
		services.OpGetTipster:    a.getTipster,
		services.OpCreateTipster: a.createTipster,
		services.OpUpdateTipster: a.updateTipster,
		services.OpDeleteTipster: a.deleteTipster,
		services.OpListMatches:   a.listMatches,
		services.OpGetMatch:      a.getMatch,
	}
}

// RegisterRoutes mounts the system routes, every endpoint from src behind
// the gates its Access level requires, and the catch-all 404 handler.
func (a *Adapter) RegisterRoutes(src EndpointSource) error {
	a.registerSystemRoutes()

	endpoints := src.Endpoints()
	handlers := a.handlers()

	api := a.app.Group(a.basePath)
	if limited := a.limitedPaths(endpoints); len(limited) > 0 {
		api.Use(a.authLimiter(limited))
	}

	for _, ep := range endpoints {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler bound to operation %q", ep.Metadata.OperationID)
		}
		methods := []string{ep.Method}

		switch ep.Access {
		case core.AccessPublic:
			api.Add(methods, ep.Path, h)
		case core.AccessOptional:
			api.Add(methods, ep.Path, a.gate.OptionalAuth, h)
		case core.AccessAuthenticated:
			api.Add(methods, ep.Path, a.gate.RequireAuth, h)
		case core.AccessAdmin:
			api.Add(methods, ep.Path, a.gate.RequireAuth, a.gate.RequireRole(core.RoleAdmin), h)
		default:
			return fmt.Errorf("operation %q: unknown access level %d", ep.Metadata.OperationID, ep.Access)
		}

		a.logger.Debug("route registered",
			zap.String("method", ep.Method),
			zap.String("path", a.basePath+ep.Path),
			zap.Stringer("access", ep.Access),
		)
	}

	a.app.Use(a.notFound)
	return nil
}

// limitedPaths collects "METHOD /full/path" keys for rate-limited endpoints.
func (a *Adapter) limitedPaths(endpoints []*core.Endpoint) map[string]bool {
	out := make(map[string]bool)
	for _, ep := range endpoints {
		if ep.Metadata.RateLimited {
			out[ep.Method+" "+strings.ToLower(a.basePath+ep.Path)] = true
		}
	}
	return out
}

func (a *Adapter) authLimiter(limited map[string]bool) fiber.Handler {
	budget, window := a.limit.Max, a.limit.Window
	if budget <= 0 {
		budget = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return limiter.New(limiter.Config{
		Next: func(c fiber.Ctx) bool {
			path := strings.ToLower(strings.TrimSuffix(c.Path(), "/"))
			return !limited[c.Method()+" "+path]
		},
		Max:          budget,
		Expiration:   window,
		LimitReached: rateLimitReached("Too many authentication attempts, please try again later"),
	})
}

func (a *Adapter) notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "Endpoint not found",
		"code":    CodeNotFound,
		"path":    c.Path(),
	})
}
