package core

import "time"

const (
	DefaultTokenTTL     = 24 * time.Hour
	DefaultQueryTimeout = 5 * time.Second
	MinSecretLength     = 32
)

// SessionConfig controls token lifetime and datastore call budgets.
type SessionConfig struct {
	// TokenTTL is both the token expiry and the session row expiry.
	TokenTTL time.Duration
	// QueryTimeout bounds every datastore call made by the session manager.
	QueryTimeout time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TokenTTL:     DefaultTokenTTL,
		QueryTimeout: DefaultQueryTimeout,
	}
}

// WithDefaults fills zero values.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	return c
}

// BootstrapAdmin is the account created when no admin exists.
type BootstrapAdmin struct {
	Username string
	Password string
	Email    string
}

func DefaultBootstrapAdmin() BootstrapAdmin {
	return BootstrapAdmin{
		Username: "admin",
		Password: "admin123",
		Email:    "admin@example.com",
	}
}
