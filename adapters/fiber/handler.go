package fiber

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
	"go.uber.org/zap"
)

// SessionService is the session lifecycle consumed by the auth handlers.
type SessionService interface {
	Authenticator
	Login(ctx context.Context, input core.LoginInput) (*core.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Status(ctx context.Context, token string) (*core.StatusResult, error)
	TokenTTL() time.Duration
}

// AccountService creates user accounts.
type AccountService interface {
	Register(ctx context.Context, input core.RegisterInput) (*core.PublicUser, error)
}

// bindJSON decodes the request body into out. An empty body leaves out
// untouched so field validation reports what is missing.
func bindJSON(c fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.Bind().JSON(out); err != nil {
		return errInvalidJSON
	}
	return nil
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.LoginInput
	if err := bindJSON(c, &input); err != nil {
		return writeError(c, a.logger, err)
	}

	result, err := a.sessions.Login(c.Context(), input)
	if err != nil {
		return writeError(c, a.logger, err)
	}

	c.Cookie(a.sessionCookie(result.Token, result.SessionExpiry))

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":       true,
		"message":       "Login successful",
		"user":          result.User,
		"token":         result.Token,
		"sessionExpiry": result.SessionExpiry,
	})
}

func (a *Adapter) logout(c fiber.Ctx) error {
	token := a.extract.Extract(c)

	c.Cookie(a.expiredCookie())

	if err := a.sessions.Logout(c.Context(), token); err != nil {
		return writeError(c, a.logger, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *Adapter) status(c fiber.Ctx) error {
	result, err := a.sessions.Status(c.Context(), a.extract.Extract(c))
	if err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		return writeError(c, a.logger, err)
	}

	user, err := a.accounts.Register(c.Context(), input)
	if err != nil {
		return writeError(c, a.logger, err)
	}

	if identity, ok := IdentityFrom(c); ok {
		a.logger.Info("user registered",
			zap.Int64("user_id", user.ID),
			zap.String("role", string(user.Role)),
			zap.Int64("registered_by", identity.UserID),
		)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

func (a *Adapter) sessionCookie(token string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.sessions.TokenTTL().Seconds()),
		Expires:  expires,
		Secure:   a.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

func (a *Adapter) expiredCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   a.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
