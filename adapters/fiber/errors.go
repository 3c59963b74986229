package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"go.uber.org/zap"
)

// Stable error codes returned in the "code" field of every error body.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeTokenMissing       = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeAdminRequired      = "ADMIN_REQUIRED"
	CodeForbidden          = "FORBIDDEN"
	CodeUserExists         = "USER_EXISTS"
	CodeNotFound           = "NOT_FOUND"
	CodeTipsterNotFound    = "TIPSTER_NOT_FOUND"
	CodeTipsterExists      = "TIPSTER_EXISTS"
	CodeMatchNotFound      = "MATCH_NOT_FOUND"
	CodeNoValidFields      = "NO_VALID_FIELDS"
	CodeInvalidJSON        = "INVALID_JSON"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

var errInvalidJSON = errors.New("invalid JSON in request body")

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type apiError struct {
	status  int
	code    string
	message string
	details any
}

// classify maps an error onto its public status, code and message. Faults
// never expose err's text.
func classify(err error) apiError {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return apiError{http.StatusBadRequest, CodeValidationFailed, "Validation failed", verr.Fields}
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return classifyFiber(ferr)
	}

	switch {
	case errors.Is(err, errInvalidJSON):
		return apiError{http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON in request body", nil}
	case errors.Is(err, core.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, CodeAuthFailed, "Invalid credentials", nil}
	case errors.Is(err, core.ErrTokenMissing):
		return apiError{http.StatusUnauthorized, CodeTokenMissing, "Access token required", nil}
	case errors.Is(err, core.ErrTokenExpired):
		return apiError{http.StatusUnauthorized, CodeTokenExpired, "Token expired", nil}
	case errors.Is(err, core.ErrTokenInvalid):
		return apiError{http.StatusUnauthorized, CodeTokenInvalid, "Invalid token", nil}
	case errors.Is(err, core.ErrSessionNotFound):
		return apiError{http.StatusUnauthorized, CodeTokenInvalid, "Session not found or expired", nil}
	case errors.Is(err, core.ErrForbidden):
		return apiError{http.StatusForbidden, CodeForbidden, "Insufficient permissions", nil}
	case errors.Is(err, core.ErrUserExists):
		return apiError{http.StatusBadRequest, CodeUserExists, "User with this username or email already exists", nil}
	case errors.Is(err, core.ErrInvalidRole):
		return apiError{http.StatusBadRequest, CodeValidationFailed, err.Error(), nil}
	case errors.Is(err, core.ErrTipsterNotFound):
		return apiError{http.StatusNotFound, CodeTipsterNotFound, "Tipster not found", nil}
	case errors.Is(err, core.ErrTipsterExists):
		return apiError{http.StatusConflict, CodeTipsterExists, "Tipster with this id already exists", nil}
	case errors.Is(err, core.ErrMatchNotFound):
		return apiError{http.StatusNotFound, CodeMatchNotFound, "Match not found", nil}
	case errors.Is(err, core.ErrNoValidFields):
		return apiError{http.StatusBadRequest, CodeNoValidFields, "No valid fields to update", nil}
	case errors.Is(err, core.ErrDatastoreTimeout):
		return apiError{http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable", nil}
	default:
		return apiError{http.StatusInternalServerError, CodeInternalError, "Internal server error", nil}
	}
}

func classifyFiber(e *fiber.Error) apiError {
	switch e.Code {
	case fiber.StatusNotFound:
		return apiError{e.Code, CodeNotFound, "Endpoint not found", nil}
	case fiber.StatusRequestEntityTooLarge:
		return apiError{e.Code, CodePayloadTooLarge, "Request body too large", nil}
	case fiber.StatusTooManyRequests:
		return apiError{e.Code, CodeRateLimitExceeded, "Too many requests, please try again later", nil}
	case fiber.StatusServiceUnavailable:
		return apiError{e.Code, CodeServiceUnavailable, "Service temporarily unavailable", nil}
	}
	if e.Code >= http.StatusInternalServerError {
		return apiError{e.Code, CodeInternalError, "Internal server error", nil}
	}
	return apiError{e.Code, CodeValidationFailed, e.Message, nil}
}

// writeError renders err as the common error body. Server-side faults are
// logged with full detail.
func writeError(c fiber.Ctx, logger *zap.Logger, err error) error {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", e.status),
			zap.Error(err),
		)
	}
	return c.Status(e.status).JSON(errorBody{
		Error:   e.message,
		Code:    e.code,
		Details: e.details,
	})
}

// ErrorHandler renders errors that escape handlers and middleware,
// including recovered panics and fasthttp body-limit failures.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	logger = logging.OrNop(logger)
	return func(c fiber.Ctx, err error) error {
		return writeError(c, logger, err)
	}
}
