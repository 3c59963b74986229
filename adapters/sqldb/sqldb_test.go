package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lborres/tipsapi/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAdapter(t *testing.T, dialect Dialect) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db, dialect), mock
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "postgres", want: Postgres},
		{in: "PostgreSQL", want: Postgres},
		{in: "pgx", want: Postgres},
		{in: "mysql", want: MySQL},
		{in: "mariadb", want: MySQL},
		{in: "sqlite", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUnknownDialect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Adapter{dialect: Postgres}
	my := &Adapter{dialect: MySQL}

	q := `SELECT id FROM users WHERE username = ? OR email = ? LIMIT ?`
	assert.Equal(t, `SELECT id FROM users WHERE username = $1 OR email = $2 LIMIT $3`, pg.rebind(q))
	assert.Equal(t, q, my.rebind(q))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestCreateUser_Postgres(t *testing.T) {
	a, mock := newMockAdapter(t, Postgres)

	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash,\s*email,\s*role,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs("alice", "hash", nil, "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u := &core.User{Username: "alice", PasswordHash: "hash"}
	require.NoError(t, a.CreateUser(context.Background(), u))

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, core.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestCreateUser_MySQL(t *testing.T) {
	a, mock := newMockAdapter(t, MySQL)

	email := "alice@example.com"
	q := `(?s)^INSERT\s+INTO\s+users\s*\(.*\)\s*VALUES\s*\(\?,\s*\?,\s*\?,\s*\?,\s*\?,\s*\?\)$`
	mock.ExpectExec(q).
		WithArgs("alice", "hash", email, "admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	u := &core.User{Username: "alice", PasswordHash: "hash", Email: &email, Role: core.RoleAdmin}
	require.NoError(t, a.CreateUser(context.Background(), u))
	assert.Equal(t, int64(12), u.ID)
}

func TestCreateUser_Duplicate(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		setup   func(mock sqlmock.Sqlmock)
	}{
		{
			name:    "postgres unique violation",
			dialect: Postgres,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(&pgconn.PgError{Code: "23505"})
			},
		},
		{
			name:    "mysql duplicate entry",
			dialect: MySQL,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMockAdapter(t, tt.dialect)
			tt.setup(mock)

			err := a.CreateUser(context.Background(), &core.User{Username: "alice", PasswordHash: "h"})
			assert.ErrorIs(t, err, core.ErrUserExists)
		})
	}
}

func TestGetUserByLogin(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*email,\s*role,\s*last_login_at,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$2\s+ORDER\s+BY\s+id\s+LIMIT\s+1$`
	cols := []string{"id", "username", "password_hash", "email", "role", "last_login_at", "created_at", "updated_at"}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found by email", func(t *testing.T) {
		a, mock := newMockAdapter(t, Postgres)
		mock.ExpectQuery(q).
			WithArgs("alice@example.com", "alice@example.com").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(1), "alice", "hash", "alice@example.com", "admin", nil, created, created))

		u, err := a.GetUserByLogin(context.Background(), "alice@example.com")
		require.NoError(t, err)

		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, "alice", u.Username)
		require.NotNil(t, u.Email)
		assert.Equal(t, "alice@example.com", *u.Email)
		assert.Equal(t, core.RoleAdmin, u.Role)
		assert.Nil(t, u.LastLoginAt)
		assert.Equal(t, created, u.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		a, mock := newMockAdapter(t, Postgres)
		mock.ExpectQuery(q).WithArgs("ghost", "ghost").WillReturnError(sql.ErrNoRows)

		_, err := a.GetUserByLogin(context.Background(), "ghost")
		assert.ErrorIs(t, err, core.ErrUserNotFound)
	})

	t.Run("db error is wrapped", func(t *testing.T) {
		a, mock := newMockAdapter(t, Postgres)
		mock.ExpectQuery(q).WithArgs("alice", "alice").WillReturnError(errors.New("db down"))

		_, err := a.GetUserByLogin(context.Background(), "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error: db down")
		assert.NotErrorIs(t, err, core.ErrUserNotFound)
	})
}

func TestUserExists(t *testing.T) {
	q := `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+WHERE\s+username\s*=\s*\?\s+OR\s+email\s*=\s*\?$`

	tests := []struct {
		name  string
		email string
		arg   any
		count int64
		want  bool
	}{
		{name: "taken", email: "a@example.com", arg: "a@example.com", count: 1, want: true},
		{name: "free without email", email: "", arg: nil, count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMockAdapter(t, MySQL)
			mock.ExpectQuery(q).
				WithArgs("alice", tt.arg).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

			got, err := a.UserExists(context.Background(), "alice", tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminExists(t *testing.T) {
	a, mock := newMockAdapter(t, Postgres)
	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+WHERE\s+role\s*=\s*\$1$`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	got, err := a.AdminExists(context.Background())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestTouchLogin(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3$`
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("updates row", func(t *testing.T) {
		a, mock := newMockAdapter(t, Postgres)
		mock.ExpectExec(q).WithArgs(at, at, int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, a.TouchLogin(context.Background(), 3, at))
	})

	t.Run("missing user", func(t *testing.T) {
		a, mock := newMockAdapter(t, Postgres)
		mock.ExpectExec(q).WithArgs(at, at, int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, a.TouchLogin(context.Background(), 99, at), core.ErrUserNotFound)
	})
}
