package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var (
	gooseMu        sync.Mutex
	gooseUpContext = goose.UpContext
)

// Migrate applies the embedded schema migrations for the adapter's dialect.
func (a *Adapter) Migrate(ctx context.Context) error {
	return migrate(ctx, a.sqlDB, a.dialect)
}

func migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	dir, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("no migrations for %s: %w", dialect, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(dir)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
