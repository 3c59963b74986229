package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/tipsapi/core"
)

const userColumns = `id, username, password_hash, email, role, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	u := &core.User{}
	var (
		email     sql.NullString
		role      string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &role, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email = stringPtr(email)
	u.Role = core.Role(role)
	u.LastLoginAt = timePtr(lastLogin)
	return u, nil
}

func (a *Adapter) CreateUser(ctx context.Context, u *core.User) error {
	now := time.Now().UTC()
	if u.Role == "" {
		u.Role = core.RoleUser
	}

	id, err := a.insertID(ctx,
		`INSERT INTO users (username, password_hash, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, nullString(u.Email), string(u.Role), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByLogin returns the oldest user whose username or email equals
// identifier exactly.
func (a *Adapter) GetUserByLogin(ctx context.Context, identifier string) (*core.User, error) {
	row := a.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? ORDER BY id LIMIT 1`,
		identifier, identifier)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (a *Adapter) UserExists(ctx context.Context, username, email string) (bool, error) {
	var emailArg sql.NullString
	if email != "" {
		emailArg = sql.NullString{String: email, Valid: true}
	}

	var n int64
	if err := a.queryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`,
		username, emailArg).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (a *Adapter) AdminExists(ctx context.Context) (bool, error) {
	var n int64
	if err := a.queryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`,
		string(core.RoleAdmin)).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (a *Adapter) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	res, err := a.exec(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkRowsAffected(res, core.ErrUserNotFound)
}
