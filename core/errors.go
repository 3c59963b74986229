package core

import (
	"errors"
	"strings"
)

// Authentication Related Errors
var (
	// User errors
	ErrUserExists         = errors.New("user already exists")        // 400 Bad Request
	ErrUserNotFound       = errors.New("user not found")             // 404 Not Found
	ErrInvalidCredentials = errors.New("invalid credentials")        // 401 Unauthorized
	ErrInvalidRole        = errors.New("role must be user or admin") // 400
)

// Token and session errors
var (
	ErrTokenMissing    = errors.New("access token required")        // 401
	ErrTokenInvalid    = errors.New("invalid token")                // 401
	ErrTokenExpired    = errors.New("token expired")                // 401
	ErrSessionNotFound = errors.New("session not found or expired") // 401
)

// Authorization errors
var (
	ErrForbidden        = errors.New("insufficient permissions")        // 403
	ErrIdentityRequired = errors.New("role check ran without identity") // 500
)

// Tipster errors
var (
	ErrTipsterNotFound = errors.New("tipster not found")         // 404
	ErrTipsterExists   = errors.New("tipster already exists")    // 409
	ErrNoValidFields   = errors.New("no valid fields to update") // 400
)

// Match errors
var (
	ErrMatchNotFound = errors.New("match not found") // 404
)

// Infrastructure errors
var (
	ErrDatastoreTimeout = errors.New("datastore timeout") // 503
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired = errors.New("storage is required")     // 500
	ErrSecretRequired  = errors.New("secret is required")      // 500
	ErrSecretTooShort  = errors.New("secret too short")        // 500
	ErrUnknownDialect  = errors.New("unknown database driver") // 500
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when client input is malformed. // 400
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e when at least one field failed, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsUnauthenticated reports whether err means the caller holds no live grant,
// as opposed to an infrastructure fault.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrSessionNotFound)
}
