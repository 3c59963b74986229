package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lborres/tipsapi/core"
)

const tipsterColumns = `id, name, url, type, platform, tracked_data, created_at, updated_at`

// sortable columns; anything else falls back to name
var tipsterOrderColumns = map[string]bool{
	"name":       true,
	"platform":   true,
	"created_at": true,
	"updated_at": true,
}

func scanTipster(row interface{ Scan(...any) error }) (*core.Tipster, error) {
	t := &core.Tipster{}
	var (
		url, typ, platform sql.NullString
		tracked            []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &url, &typ, &platform, &tracked, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.URL = stringPtr(url)
	t.Type = stringPtr(typ)
	t.Platform = stringPtr(platform)
	if len(tracked) > 0 {
		t.TrackedData = append([]byte(nil), tracked...)
	}
	return t, nil
}

func tipsterWhere(f core.TipsterFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (a *Adapter) ListTipsters(ctx context.Context, f core.TipsterFilter) ([]*core.Tipster, int, error) {
	where, args := tipsterWhere(f)

	var total int
	if err := a.queryRow(ctx, `SELECT COUNT(*) FROM tipsters`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	col := f.SortBy
	if !tipsterOrderColumns[col] {
		col = "name"
	}
	order := "ASC"
	if strings.EqualFold(f.SortOrder, "DESC") {
		order = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = core.DefaultPageLimit
	}

	q := `SELECT ` + tipsterColumns + ` FROM tipsters` + where +
		` ORDER BY ` + col + ` ` + order + `, id ASC LIMIT ? OFFSET ?`
	rows, err := a.query(ctx, q, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*core.Tipster, 0, limit)
	for rows.Next() {
		t, err := scanTipster(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (a *Adapter) GetTipster(ctx context.Context, id string) (*core.Tipster, error) {
	t, err := scanTipster(a.queryRow(ctx, `SELECT `+tipsterColumns+` FROM tipsters WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrTipsterNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (a *Adapter) CreateTipster(ctx context.Context, t *core.Tipster) error {
	now := time.Now().UTC()

	_, err := a.exec(ctx,
		`INSERT INTO tipsters (id, name, url, type, platform, tracked_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, nullString(t.URL), nullString(t.Type), nullString(t.Platform), jsonArg(t.TrackedData), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrTipsterExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// UpdateTipster applies the non-nil fields of p and bumps updated_at.
func (a *Adapter) UpdateTipster(ctx context.Context, id string, p core.TipsterPatch) error {
	if p.Empty() {
		return core.ErrNoValidFields
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		set("name", strings.TrimSpace(*p.Name))
	}
	if p.URL != nil {
		set("url", *p.URL)
	}
	if p.Type != nil {
		set("type", *p.Type)
	}
	if p.Platform != nil {
		set("platform", *p.Platform)
	}
	if p.TrackedData != nil {
		set("tracked_data", jsonArg(p.TrackedData))
	}
	set("updated_at", time.Now().UTC())

	res, err := a.exec(ctx,
		`UPDATE tipsters SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkRowsAffected(res, core.ErrTipsterNotFound)
}

func (a *Adapter) DeleteTipster(ctx context.Context, id string) error {
	res, err := a.exec(ctx, `DELETE FROM tipsters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkRowsAffected(res, core.ErrTipsterNotFound)
}

// jsonArg passes JSON as text so both drivers accept it for JSON/JSONB columns.
func jsonArg(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
