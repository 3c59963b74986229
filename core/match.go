package core

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire and filter format of a match date.
const DateLayout = "2006-01-02"

// matchSortColumns whitelists sortable columns; keys are accepted query values.
var matchSortColumns = map[string]string{
	"match_date":       "match_date",
	"date":             "match_date",
	"match_time":       "match_time",
	"time":             "match_time",
	"competition_name": "competition_name",
	"competition":      "competition_name",
	"status_stage":     "status_stage",
	"status":           "status_stage",
	"sport":            "sport",
	"created_at":       "created_at",
	"createdAt":        "created_at",
	"updated_at":       "updated_at",
	"updatedAt":        "updated_at",
}

type Team struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
	Logo *string `json:"logo"`
}

type Competition struct {
	Name   *string `json:"name"`
	Season *string `json:"season"`
	Region *string `json:"region"`
}

type MatchStatus struct {
	Stage string `json:"stage"`
}

// Match is a fixture between two teams. Statistics is only loaded for the
// detail view.
type Match struct {
	ID            string          `json:"id"`
	Home          Team            `json:"home"`
	Away          Team            `json:"away"`
	Date          string          `json:"date"`
	Time          *string         `json:"time"`
	Status        MatchStatus     `json:"status"`
	Competition   Competition     `json:"competition"`
	Sport         *string         `json:"sport"`
	Odds          json.RawMessage `json:"odds"`
	Statistics    json.RawMessage `json:"statistics,omitempty"`
	SofascoreID   *string         `json:"sofascoreId"`
	TotalcornerID *string         `json:"totalcornerId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MatchTip is the summary of a tip shown alongside its match.
type MatchTip struct {
	ID         string    `json:"id"`
	Selection  string    `json:"selection"`
	MarketType *string   `json:"marketType"`
	Odds       float64   `json:"odds"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MatchDetail is a match with the tips placed on it.
type MatchDetail struct {
	*Match
	RelatedTips []MatchTip `json:"relatedTips"`
}

// MatchPage is one page of matches.
type MatchPage struct {
	Data       []*Match   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// MatchQuery is the raw listing request.
type MatchQuery struct {
	Page        string
	Limit       string
	Date        string
	Competition string
	Team        string
	Status      string
	Sport       string
	SortBy      string
	SortOrder   string
}

// Filter validates q and converts it into a storage filter plus the page
// number. Matches sort newest first unless asked otherwise.
func (q MatchQuery) Filter() (MatchFilter, int, error) {
	v := &ValidationError{}

	page, limit := parsePaging(v, q.Page, q.Limit)

	date := strings.TrimSpace(q.Date)
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			v.Add("date", "date must be formatted as YYYY-MM-DD")
		}
	}

	sortBy := "match_date"
	if q.SortBy != "" {
		col, ok := matchSortColumns[q.SortBy]
		if !ok {
			v.Add("sortBy", "sortBy must be one of match_date, match_time, competition_name, status_stage, sport, created_at, updated_at")
		}
		sortBy = col
	}

	order := "DESC"
	switch strings.ToLower(q.SortOrder) {
	case "", "desc":
	case "asc":
		order = "ASC"
	default:
		v.Add("sortOrder", "sortOrder must be asc or desc")
	}

	if err := v.Err(); err != nil {
		return MatchFilter{}, 0, err
	}

	return MatchFilter{
		Date:        date,
		Competition: strings.TrimSpace(q.Competition),
		Team:        strings.TrimSpace(q.Team),
		Status:      strings.TrimSpace(q.Status),
		Sport:       strings.TrimSpace(q.Sport),
		SortBy:      sortBy,
		SortOrder:   order,
		Limit:       limit,
		Offset:      pageOffset(page, limit),
	}, page, nil
}
