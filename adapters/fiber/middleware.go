package fiber

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/lborres/tipsapi/pkg/metrics"
	"go.uber.org/zap"
)

// Authenticator resolves a token into the identity behind a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*core.Identity, error)
}

// identityKey is unexported so only a successful gate can attach an identity.
type identityKey struct{}

// IdentityFrom returns the identity attached by RequireAuth or OptionalAuth.
func IdentityFrom(c fiber.Ctx) (*core.Identity, bool) {
	identity, ok := c.Locals(identityKey{}).(*core.Identity)
	return identity, ok && identity != nil
}

// Gate authenticates requests before they reach their handlers.
type Gate struct {
	auth    Authenticator
	extract TokenExtractor
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewGate(auth Authenticator, extract TokenExtractor, m *metrics.Metrics, logger *zap.Logger) *Gate {
	if extract == nil {
		extract = CookieExtractor(DefaultCookieName)
	}
	return &Gate{
		auth:    auth,
		extract: extract,
		metrics: m,
		logger:  logging.OrNop(logger).Named("gate"),
	}
}

// RequireAuth rejects the request unless its token verifies and maps to a
// live session row.
func (g *Gate) RequireAuth(c fiber.Ctx) error {
	identity, err := g.auth.Authenticate(c.Context(), g.extract.Extract(c))
	if err != nil {
		if core.IsUnauthenticated(err) {
			e := classify(err)
			g.metrics.ObserveRejection(e.code)
			return c.Status(e.status).JSON(errorBody{Error: e.message, Code: e.code})
		}
		return writeError(c, g.logger, err)
	}

	c.Locals(identityKey{}, identity)
	return c.Next()
}

// OptionalAuth attaches an identity when the token checks out and proceeds
// anonymously otherwise.
func (g *Gate) OptionalAuth(c fiber.Ctx) error {
	token := g.extract.Extract(c)
	if token == "" {
		return c.Next()
	}

	identity, err := g.auth.Authenticate(c.Context(), token)
	if err != nil {
		if !core.IsUnauthenticated(err) {
			g.logger.Warn("optional authentication failed, continuing anonymously",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Next()
	}

	c.Locals(identityKey{}, identity)
	return c.Next()
}

// RequireRole must be chained after RequireAuth. A request without an
// attached identity is a routing fault and fails with 500.
func (g *Gate) RequireRole(role core.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			g.logger.Error("role check mounted without authentication",
				zap.String("role", string(role)),
				zap.String("path", c.Path()),
			)
			return writeError(c, g.logger, core.ErrIdentityRequired)
		}

		if !identity.HasRole(role) {
			code, msg := CodeForbidden, "Insufficient permissions"
			if role == core.RoleAdmin {
				code, msg = CodeAdminRequired, "Admin access required"
			}
			g.metrics.ObserveRejection(code)
			return c.Status(http.StatusForbidden).JSON(errorBody{Error: msg, Code: code})
		}
		return c.Next()
	}
}
