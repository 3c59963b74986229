package core

import (
	"encoding/json"
	"time"
)

// Role is the authorization level attached to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole maps a raw value onto a Role. An empty value yields RoleUser.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleUser, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User represents a user account in the system
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         Role       `json:"role"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Public returns the profile shape that is safe to hand to clients.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		LastLogin: u.LastLoginAt,
	}
}

// PublicUser is the only user shape rendered in responses.
type PublicUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email"`
	Role      Role       `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Session represents a live login grant.
//
// The row stores a hash of the issued token, never the token itself.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Live reports whether the session expiry is strictly after now.
func (s *Session) Live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// SessionData joins a live session with its owner.
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// Identity is attached to a request only after a successful gate check.
type Identity struct {
	UserID        int64
	Username      string
	Email         *string
	Role          Role
	SessionExpiry time.Time
}

// HasRole reports whether the identity carries role r.
func (i *Identity) HasRole(r Role) bool {
	return i != nil && i.Role == r
}

// Claims are the decoded contents of a verified token.
type Claims struct {
	ID        string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tipster is a tracked tip source.
type Tipster struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	URL         *string         `json:"url"`
	Type        *string         `json:"type"`
	Platform    *string         `json:"platform"`
	TrackedData json.RawMessage `json:"trackedData,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
