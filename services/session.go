package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/crypto"
	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/lborres/tipsapi/pkg/metrics"
	"go.uber.org/zap"
)

// dummyPassword is hashed once so unknown identifiers still pay for one
// password comparison.
const dummyPassword = "tipsapi-timing-equalizer"

type SessionManager struct {
	config    core.SessionConfig
	storage   core.AuthStorage
	tokens    core.TokenCodec
	passwords core.PasswordHasher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	dummyHash string
}

func NewSessionManager(
	config core.SessionConfig,
	storage core.AuthStorage,
	tokens core.TokenCodec,
	passwords core.PasswordHasher,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*SessionManager, error) {
	if storage == nil {
		return nil, core.ErrStorageRequired
	}

	dummyHash, err := passwords.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &SessionManager{
		config:    config.WithDefaults(),
		storage:   storage,
		tokens:    tokens,
		passwords: passwords,
		metrics:   m,
		logger:    logging.OrNop(logger).Named("session"),
		now:       time.Now,
		dummyHash: dummyHash,
	}, nil
}

// Login verifies credentials, issues a token and persists its session row.
// Unknown identifiers and wrong passwords both yield core.ErrInvalidCredentials.
func (sm *SessionManager) Login(ctx context.Context, input core.LoginInput) (*core.LoginResult, error) {
	// Step 1: Validate input
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Find the user by username or email
	var user *core.User
	err := sm.call(ctx, "get user", func(ctx context.Context) error {
		var err error
		user, err = sm.storage.GetUserByLogin(ctx, input.Username)
		return err
	})
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, err
	}

	// Step 3: Compare the password, against a dummy hash when no user matched
	hash := sm.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	ok, verr := sm.passwords.Verify(input.Password, hash)
	if verr != nil && user != nil {
		sm.logger.Error("stored password hash unreadable", zap.Int64("user_id", user.ID), zap.Error(verr))
	}
	if user == nil || !ok {
		sm.metrics.ObserveLogin(false)
		return nil, core.ErrInvalidCredentials
	}

	// Step 4: Issue the token. Expiry is truncated to whole seconds so the
	// token claim and the session row carry the same instant.
	now := sm.now()
	expiresAt := now.Add(sm.config.TokenTTL).Truncate(time.Second)

	token, err := sm.tokens.Sign(user.ID, user.Username, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// Step 5: Persist the session row
	session := &core.Session{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := sm.call(ctx, "create session", func(ctx context.Context) error {
		return sm.storage.CreateSession(ctx, session)
	}); err != nil {
		return nil, err
	}

	// Step 6: Refresh the user's activity timestamps. The session row is
	// removed again on failure so no grant outlives a failed login.
	if err := sm.call(ctx, "touch user", func(ctx context.Context) error {
		return sm.storage.TouchLogin(ctx, user.ID, now)
	}); err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := sm.call(cleanupCtx, "delete session", func(ctx context.Context) error {
			return sm.storage.DeleteSessionByHash(ctx, session.TokenHash)
		}); derr != nil {
			sm.logger.Error("failed to remove session after login failure",
				zap.Int64("user_id", user.ID), zap.Error(derr))
		}
		return nil, err
	}
	user.LastLoginAt = &now

	sm.metrics.ObserveLogin(true)
	sm.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	return &core.LoginResult{
		User:          user.Public(),
		Token:         token,
		SessionExpiry: expiresAt,
	}, nil
}

// Logout deletes the session row for token. A missing token or row is not an error.
func (sm *SessionManager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	return sm.call(ctx, "delete session", func(ctx context.Context) error {
		return sm.storage.DeleteSessionByHash(ctx, crypto.HashToken(token))
	})
}

// Authenticate resolves token into an identity. The token must verify and
// be backed by a live session row.
func (sm *SessionManager) Authenticate(ctx context.Context, token string) (*core.Identity, error) {
	if token == "" {
		return nil, core.ErrTokenMissing
	}

	claims, err := sm.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	var data *core.SessionData
	err = sm.call(ctx, "get session", func(ctx context.Context) error {
		var err error
		data, err = sm.storage.GetLiveSession(ctx, crypto.HashToken(token), sm.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	// the row was found by token hash, so a differing owner means the row
	// and the token disagree about who holds the grant
	if data.User.ID != claims.UserID {
		sm.logger.Warn("session owner does not match token subject",
			zap.Int64("session_user_id", data.User.ID),
			zap.Int64("token_user_id", claims.UserID))
		return nil, core.ErrTokenInvalid
	}

	return &core.Identity{
		UserID:        data.User.ID,
		Username:      data.User.Username,
		Email:         data.User.Email,
		Role:          data.User.Role,
		SessionExpiry: data.Session.ExpiresAt,
	}, nil
}

// Status reports whether token maps to a live session. Only infrastructure
// faults are returned as errors.
func (sm *SessionManager) Status(ctx context.Context, token string) (*core.StatusResult, error) {
	identity, err := sm.Authenticate(ctx, token)
	if err != nil {
		if core.IsUnauthenticated(err) {
			return &core.StatusResult{Authenticated: false}, nil
		}
		return nil, err
	}

	return &core.StatusResult{
		Authenticated: true,
		User: &core.StatusUser{
			ID:            identity.UserID,
			Username:      identity.Username,
			Email:         identity.Email,
			Role:          identity.Role,
			SessionExpiry: identity.SessionExpiry,
		},
	}, nil
}

// Cleanup deletes every session whose expiry has passed and returns the count.
func (sm *SessionManager) Cleanup(ctx context.Context) (int64, error) {
	var n int64
	err := sm.call(ctx, "delete expired sessions", func(ctx context.Context) error {
		var err error
		n, err = sm.storage.DeleteExpiredSessions(ctx, sm.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	sm.metrics.ObserveSweep(n)
	if n > 0 {
		sm.logger.Info("expired sessions cleaned up", zap.Int64("count", n))
	}
	return n, nil
}

// TokenTTL is the lifetime given to new tokens and sessions.
func (sm *SessionManager) TokenTTL() time.Duration {
	return sm.config.TokenTTL
}

func (sm *SessionManager) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return callStore(ctx, sm.config.QueryTimeout, op, fn)
}

// callStore runs fn under a timeout. Domain sentinels pass through untouched;
// a timeout becomes core.ErrDatastoreTimeout; anything else is wrapped with op.
func callStore(ctx context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, core.ErrDatastoreTimeout, err)
	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrTipsterNotFound),
		errors.Is(err, core.ErrTipsterExists),
		errors.Is(err, core.ErrMatchNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
