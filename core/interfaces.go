package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	// GetUserByLogin matches identifier against username or email exactly.
	GetUserByLogin(ctx context.Context, identifier string) (*User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	AdminExists(ctx context.Context) (bool, error)
	TouchLogin(ctx context.Context, userID int64, at time.Time) error
}

// SessionStorage defines session-related database operations
type SessionStorage interface {
	CreateSession(ctx context.Context, s *Session) error
	// GetLiveSession returns the session for tokenHash joined with its owner,
	// only when the session expires after now.
	GetLiveSession(ctx context.Context, tokenHash string, now time.Time) (*SessionData, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuthStorage interface {
	UserStorage
	SessionStorage
}

// TipsterFilter narrows and orders a tipster listing.
type TipsterFilter struct {
	Platform  string
	Type      string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// TipsterPatch holds the fields of a partial update; nil means unchanged.
type TipsterPatch struct {
	Name        *string
	URL         *string
	Type        *string
	Platform    *string
	TrackedData []byte
}

// Empty reports whether the patch changes nothing.
func (p TipsterPatch) Empty() bool {
	return p.Name == nil && p.URL == nil && p.Type == nil && p.Platform == nil && p.TrackedData == nil
}

// TipsterStorage defines tipster-related database operations
type TipsterStorage interface {
	ListTipsters(ctx context.Context, f TipsterFilter) ([]*Tipster, int, error)
	GetTipster(ctx context.Context, id string) (*Tipster, error)
	CreateTipster(ctx context.Context, t *Tipster) error
	UpdateTipster(ctx context.Context, id string, p TipsterPatch) error
	DeleteTipster(ctx context.Context, id string) error
}

// MatchFilter narrows and orders a match listing. Competition and Team are
// case-insensitive substring matches; Team matches either side.
type MatchFilter struct {
	Date        string
	Competition string
	Team        string
	Status      string
	Sport       string
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// MatchStorage defines match-related database operations
type MatchStorage interface {
	ListMatches(ctx context.Context, f MatchFilter) ([]*Match, int, error)
	GetMatch(ctx context.Context, id string) (*Match, error)
	// ListMatchTips returns the tips placed on a match, oldest first.
	ListMatchTips(ctx context.Context, matchID string) ([]MatchTip, error)
}

// ============================================
// CRYPTO PORTS
// ============================================

// TokenCodec signs and verifies self-contained auth tokens.
type TokenCodec interface {
	Sign(userID int64, username string, expiresAt time.Time) (string, error)
	Verify(token string) (*Claims, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}
