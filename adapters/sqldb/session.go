package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/tipsapi/core"
)

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	id, err := a.insertID(ctx,
		`INSERT INTO sessions (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.UserID, s.TokenHash, s.ExpiresAt.UTC(), s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	s.ID = id
	return nil
}

// GetLiveSession joins the session for tokenHash with its owner, provided
// the session expires strictly after now.
func (a *Adapter) GetLiveSession(ctx context.Context, tokenHash string, now time.Time) (*core.SessionData, error) {
	row := a.queryRow(ctx,
		`SELECT s.id, s.user_id, s.expires_at, s.created_at,
			u.id, u.username, u.email, u.role, u.last_login_at, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.expires_at > ?`,
		tokenHash, now.UTC())

	s := &core.Session{TokenHash: tokenHash}
	u := &core.User{}
	var (
		email     sql.NullString
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt,
		&u.ID, &u.Username, &email, &role, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Email = stringPtr(email)
	u.Role = core.Role(role)
	u.LastLoginAt = timePtr(lastLogin)

	return &core.SessionData{User: u, Session: s}, nil
}

// DeleteSessionByHash removes the session for tokenHash. Deleting a
// missing row is not an error.
func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if _, err := a.exec(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (a *Adapter) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := a.exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
