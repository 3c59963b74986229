// Package sqldb implements the storage ports on database/sql for
// PostgreSQL (through pgx) and MySQL.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lborres/tipsapi/core"
)

// Dialect selects placeholder style, id retrieval and migrations.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownDialect, s)
	}
}

// DBTX is the subset of database/sql used by the adapter.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Adapter struct {
	db      DBTX
	sqlDB   *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
}

var (
	_ core.AuthStorage    = (*Adapter)(nil)
	_ core.TipsterStorage = (*Adapter)(nil)
	_ core.MatchStorage   = (*Adapter)(nil)
)

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Adapter {
	return &Adapter{db: db, sqlDB: db, dialect: dialect}
}

// Options configures Open.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the configured database and verifies the connection.
// PostgreSQL goes through a pgx pool exposed as *sql.DB.
func Open(ctx context.Context, opts Options) (*Adapter, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}

	a := &Adapter{dialect: dialect}

	switch dialect {
	case Postgres:
		cfg, err := pgxpool.ParseConfig(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			cfg.MaxConns = int32(opts.MaxOpenConns)
		}
		if opts.ConnMaxLifetime > 0 {
			cfg.MaxConnLifetime = opts.ConnMaxLifetime
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		a.pool = pool
		a.sqlDB = stdlib.OpenDBFromPool(pool)

	case MySQL:
		cfg, err := mysql.ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// timestamps are scanned into time.Time and stored as UTC; updates
		// report matched rows so unchanged rows are not mistaken for missing
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.ClientFoundRows = true

		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connector: %w", err)
		}
		a.sqlDB = sql.OpenDB(connector)
		if opts.MaxOpenConns > 0 {
			a.sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.ConnMaxLifetime > 0 {
			a.sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}
	a.db = a.sqlDB

	if err := a.Ping(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return a, nil
}

func (a *Adapter) Dialect() Dialect {
	return a.dialect
}

// DB returns the underlying handle.
func (a *Adapter) DB() *sql.DB {
	return a.sqlDB
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.sqlDB.PingContext(ctx)
}

func (a *Adapter) Close() error {
	err := a.sqlDB.Close()
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

// rebind rewrites ? placeholders as $n for PostgreSQL. Queries in this
// package never contain a literal question mark.
func (a *Adapter) rebind(query string) string {
	if a.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (a *Adapter) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, a.rebind(query), args...)
}

func (a *Adapter) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, a.rebind(query), args...)
}

func (a *Adapter) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return a.db.QueryRowContext(ctx, a.rebind(query), args...)
}

// insertID runs an INSERT and returns the generated id, using RETURNING on
// PostgreSQL and LastInsertId on MySQL.
func (a *Adapter) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if a.dialect == Postgres {
		var id int64
		if err := a.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := a.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation reports a duplicate-key failure from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func checkRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
