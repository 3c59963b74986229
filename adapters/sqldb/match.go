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

const matchColumns = `id, home_team_id, home_team_name, home_team_logo, away_team_id, away_team_name, away_team_logo, ` +
	`match_date, match_time, status_stage, competition_name, competition_season, competition_region, sport, ` +
	`odds_data, sofascore_id, totalcorner_id, created_at, updated_at`

var matchOrderColumns = map[string]bool{
	"match_date":       true,
	"match_time":       true,
	"competition_name": true,
	"status_stage":     true,
	"sport":            true,
	"created_at":       true,
	"updated_at":       true,
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in
// either dialect.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// scanMatch reads matchColumns, optionally followed by statistics.
func scanMatch(row interface{ Scan(...any) error }, withStats bool) (*core.Match, error) {
	m := &core.Match{}
	var (
		homeID, homeLogo, awayID, awayLogo   sql.NullString
		matchTime, compName, compSeason      sql.NullString
		compRegion, sport, sofascore, corner sql.NullString
		date                                 time.Time
		odds, stats                          []byte
	)
	dest := []any{
		&m.ID, &homeID, &m.Home.Name, &homeLogo, &awayID, &m.Away.Name, &awayLogo,
		&date, &matchTime, &m.Status.Stage, &compName, &compSeason, &compRegion, &sport,
		&odds, &sofascore, &corner, &m.CreatedAt, &m.UpdatedAt,
	}
	if withStats {
		dest = append(dest, &stats)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m.Home.ID = stringPtr(homeID)
	m.Home.Logo = stringPtr(homeLogo)
	m.Away.ID = stringPtr(awayID)
	m.Away.Logo = stringPtr(awayLogo)
	m.Date = date.Format(core.DateLayout)
	m.Time = stringPtr(matchTime)
	m.Competition = core.Competition{
		Name:   stringPtr(compName),
		Season: stringPtr(compSeason),
		Region: stringPtr(compRegion),
	}
	m.Sport = stringPtr(sport)
	m.SofascoreID = stringPtr(sofascore)
	m.TotalcornerID = stringPtr(corner)
	if len(odds) > 0 {
		m.Odds = append([]byte(nil), odds...)
	}
	if len(stats) > 0 {
		m.Statistics = append([]byte(nil), stats...)
	}
	return m, nil
}

func matchWhere(f core.MatchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Date != "" {
		conds = append(conds, "match_date = ?")
		args = append(args, f.Date)
	}
	if f.Competition != "" {
		conds = append(conds, "LOWER(competition_name) LIKE LOWER(?) ESCAPE '!'")
		args = append(args, containsPattern(f.Competition))
	}
	if f.Team != "" {
		pattern := containsPattern(f.Team)
		conds = append(conds, "(LOWER(home_team_name) LIKE LOWER(?) ESCAPE '!' OR LOWER(away_team_name) LIKE LOWER(?) ESCAPE '!')")
		args = append(args, pattern, pattern)
	}
	if f.Status != "" {
		conds = append(conds, "status_stage = ?")
		args = append(args, f.Status)
	}
	if f.Sport != "" {
		conds = append(conds, "sport = ?")
		args = append(args, f.Sport)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (a *Adapter) ListMatches(ctx context.Context, f core.MatchFilter) ([]*core.Match, int, error) {
	where, args := matchWhere(f)

	var total int
	if err := a.queryRow(ctx, `SELECT COUNT(*) FROM matches`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	col := f.SortBy
	if !matchOrderColumns[col] {
		col = "match_date"
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "ASC") {
		order = "ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = core.DefaultPageLimit
	}

	q := `SELECT ` + matchColumns + ` FROM matches` + where +
		` ORDER BY ` + col + ` ` + order + `, id ASC LIMIT ? OFFSET ?`
	rows, err := a.query(ctx, q, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*core.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows, false)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (a *Adapter) GetMatch(ctx context.Context, id string) (*core.Match, error) {
	m, err := scanMatch(a.queryRow(ctx, `SELECT `+matchColumns+`, statistics FROM matches WHERE id = ?`, id), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrMatchNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// ListMatchTips returns the tips on a match, oldest first.
func (a *Adapter) ListMatchTips(ctx context.Context, matchID string) ([]core.MatchTip, error) {
	rows, err := a.query(ctx,
		`SELECT id, selection, market_type, odds, status, created_at FROM tips WHERE match_id = ? ORDER BY created_at ASC, id ASC`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.MatchTip
	for rows.Next() {
		var (
			tip    core.MatchTip
			market sql.NullString
		)
		if err := rows.Scan(&tip.ID, &tip.Selection, &market, &tip.Odds, &tip.Status, &tip.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tip.MarketType = stringPtr(market)
		out = append(out, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
