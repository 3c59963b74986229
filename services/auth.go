package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"go.uber.org/zap"
)

// AuthService manages user accounts: admin-initiated registration and
// the first-run admin bootstrap.
type AuthService struct {
	storage      core.UserStorage
	passwords    core.PasswordHasher
	queryTimeout time.Duration
	logger       *zap.Logger
}

func NewAuthService(storage core.UserStorage, passwords core.PasswordHasher, queryTimeout time.Duration, logger *zap.Logger) *AuthService {
	if queryTimeout <= 0 {
		queryTimeout = core.DefaultQueryTimeout
	}
	return &AuthService{
		storage:      storage,
		passwords:    passwords,
		queryTimeout: queryTimeout,
		logger:       logging.OrNop(logger).Named("auth"),
	}
}

// Register creates a user after validating input and checking that neither
// the username nor the email is taken.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (*core.PublicUser, error) {
	// Step 1: Validate input
	if err := input.Validate(); err != nil {
		return nil, err
	}
	role, _ := core.ParseRole(input.Role)

	// Step 2: Check if user already exists
	var exists bool
	if err := callStore(ctx, s.queryTimeout, "check user", func(ctx context.Context) error {
		var err error
		exists, err = s.storage.UserExists(ctx, input.Username, input.Email)
		return err
	}); err != nil {
		return nil, err
	}
	if exists {
		return nil, core.ErrUserExists
	}

	// Step 3: Hash the password
	hashedPassword, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 4: Create the user; a unique violation from a concurrent insert
	// surfaces as core.ErrUserExists
	user := &core.User{
		Username:     input.Username,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if input.Email != "" {
		email := input.Email
		user.Email = &email
	}

	if err := callStore(ctx, s.queryTimeout, "create user", func(ctx context.Context) error {
		return s.storage.CreateUser(ctx, user)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))

	public := user.Public()
	return &public, nil
}

// EnsureAdmin creates the bootstrap admin when no admin-role user exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, admin core.BootstrapAdmin) (bool, error) {
	var exists bool
	if err := callStore(ctx, s.queryTimeout, "check admin", func(ctx context.Context) error {
		var err error
		exists, err = s.storage.AdminExists(ctx)
		return err
	}); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hashedPassword, err := s.passwords.Hash(admin.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		Username:     admin.Username,
		PasswordHash: hashedPassword,
		Role:         core.RoleAdmin,
	}
	if admin.Email != "" {
		email := admin.Email
		user.Email = &email
	}

	if err := callStore(ctx, s.queryTimeout, "create admin", func(ctx context.Context) error {
		return s.storage.CreateUser(ctx, user)
	}); err != nil {
		return false, err
	}

	s.logger.Warn("default admin user created, change its password",
		zap.String("username", admin.Username))
	return true, nil
}
