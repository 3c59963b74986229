package fiber

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// DefaultCookieName carries the session token when cookie transport is used.
const DefaultCookieName = "auth_session"

// TokenExtractor reads the credential token from exactly one request source.
type TokenExtractor interface {
	Extract(c fiber.Ctx) string
	// Source names the transport for logs.
	Source() string
}

type cookieExtractor struct {
	name string
}

// CookieExtractor reads the token from the named cookie.
func CookieExtractor(name string) TokenExtractor {
	if name == "" {
		name = DefaultCookieName
	}
	return cookieExtractor{name: name}
}

func (e cookieExtractor) Extract(c fiber.Ctx) string {
	return c.Cookies(e.name)
}

func (e cookieExtractor) Source() string {
	return "cookie:" + e.name
}

type bearerExtractor struct{}

// BearerExtractor reads the token from an "Authorization: Bearer" header.
func BearerExtractor() TokenExtractor {
	return bearerExtractor{}
}

func (bearerExtractor) Extract(c fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (bearerExtractor) Source() string {
	return "header:Authorization"
}

// NewTokenExtractor builds the extractor named by a deployment setting:
// "cookie" or "bearer".
func NewTokenExtractor(transport, cookieName string) (TokenExtractor, error) {
	switch strings.ToLower(transport) {
	case "", "cookie":
		return CookieExtractor(cookieName), nil
	case "bearer":
		return BearerExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown token transport %q", transport)
	}
}
