package fiber

import (
	"context"
	"slices"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/lborres/tipsapi/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBodyLimit = 10 * 1024 * 1024
	healthTimeout    = 2 * time.Second
)

// Pinger reports whether the datastore is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerOptions struct {
	AppName     string
	BodyLimit   int
	CORSOrigins []string
	GlobalLimit RateLimit
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewApp creates the fiber application with the global middleware stack:
// recover, request id, security headers, CORS, the global limiter, request
// logging and metrics.
func NewApp(opts ServerOptions) *fiber.App {
	logger := logging.OrNop(opts.Logger).Named("http")

	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	if opts.GlobalLimit.Max <= 0 {
		opts.GlobalLimit.Max = 1000
	}
	if opts.GlobalLimit.Window <= 0 {
		opts.GlobalLimit.Window = 15 * time.Minute
	}

	app := fiber.New(fiber.Config{
		AppName:      opts.AppName,
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: ErrorHandler(logger),
	})

	app.Use(recoverer.New(recoverer.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(helmet.New())
	app.Use(cors.New(corsConfig(opts.CORSOrigins)))
	app.Use(limiter.New(limiter.Config{
		Max:          opts.GlobalLimit.Max,
		Expiration:   opts.GlobalLimit.Window,
		LimitReached: rateLimitReached("Too many requests from this IP, please try again later"),
	}))
	app.Use(observe(opts.Metrics, logger))

	return app
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions},
		AllowHeaders: []string{fiber.HeaderContentType, fiber.HeaderAuthorization},
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
		// credentials cannot be combined with a wildcard origin
		cfg.AllowCredentials = !slices.Contains(origins, "*")
	}
	return cfg
}

func rateLimitReached(message string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{
			Error: message,
			Code:  CodeRateLimitExceeded,
		})
	}
}

// observe logs one line per request and records request metrics. Errors
// from the chain are rendered here so the logged status is final.
func observe(m *metrics.Metrics, logger *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := writeError(c, logger, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		m.ObserveRequest(c.Method(), status, elapsed)

		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("ip", c.IP()),
		)
		return nil
	}
}

func (a *Adapter) registerSystemRoutes() {
	a.app.Get("/health", a.health)
	if a.metrics != nil {
		a.app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))
	}
}

func (a *Adapter) health(c fiber.Ctx) error {
	status := fiber.StatusOK
	database := "not configured"

	if a.database != nil {
		ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
		defer cancel()

		database = "connected"
		if err := a.database.Ping(ctx); err != nil {
			a.logger.Warn("health check: database unreachable", zap.Error(err))
			database = "disconnected"
			status = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"success":   status == fiber.StatusOK,
		"message":   "Tips API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   a.version,
		"database":  database,
	})
}
