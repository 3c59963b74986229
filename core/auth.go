package core

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	MaxPasswordLength = 128
)

// LoginInput contains the credentials presented at login.
// Username may hold either the username or the email.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate trims the identifier and checks both fields are present.
func (in *LoginInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)

	v := &ValidationError{}
	if in.Username == "" {
		v.Add("username", "username is required")
	}
	if in.Password == "" {
		v.Add("password", "password is required")
	}
	return v.Err()
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User          PublicUser `json:"user"`
	Token         string     `json:"token"` // The raw token (not the hash)
	SessionExpiry time.Time  `json:"sessionExpiry"`
}

// StatusResult reports whether a token maps to a live session.
type StatusResult struct {
	Authenticated bool        `json:"authenticated"`
	User          *StatusUser `json:"user,omitempty"`
}

// StatusUser is the profile reported by a positive status check.
type StatusUser struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         *string   `json:"email"`
	Role          Role      `json:"role"`
	SessionExpiry time.Time `json:"sessionExpiry"`
}

// RegisterInput contains the data needed to create a user.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Validate normalizes the input and reports every failing field.
func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	v := &ValidationError{}
	if utf8.RuneCountInString(in.Username) < MinUsernameLength {
		v.Add("username", "username must be at least 3 characters")
	}
	switch n := utf8.RuneCountInString(in.Password); {
	case n < MinPasswordLength:
		v.Add("password", "password must be at least 6 characters")
	case n > MaxPasswordLength:
		v.Add("password", "password is too long")
	}
	if in.Email != "" && !validEmail(in.Email) {
		v.Add("email", "email must be valid")
	}
	if _, err := ParseRole(in.Role); err != nil {
		v.Add("role", err.Error())
	}
	return v.Err()
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	// reject display-name forms such as "Bob <bob@example.com>"
	return err == nil && addr.Address == s
}
