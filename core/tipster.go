package core

import (
	"encoding/json"
	"strings"
)

// tipsterSortColumns whitelists sortable columns; keys are accepted query values.
var tipsterSortColumns = map[string]string{
	"name":       "name",
	"platform":   "platform",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
}

// TipsterQuery is the raw listing request.
type TipsterQuery struct {
	Page      string
	Limit     string
	Platform  string
	Type      string
	SortBy    string
	SortOrder string
}

// Filter validates q and converts it into a storage filter plus the page number.
func (q TipsterQuery) Filter() (TipsterFilter, int, error) {
	v := &ValidationError{}

	page, limit := parsePaging(v, q.Page, q.Limit)

	sortBy := "name"
	if q.SortBy != "" {
		col, ok := tipsterSortColumns[q.SortBy]
		if !ok {
			v.Add("sortBy", "sortBy must be one of name, platform, created_at, updated_at")
		}
		sortBy = col
	}

	order := "ASC"
	switch strings.ToLower(q.SortOrder) {
	case "", "asc":
	case "desc":
		order = "DESC"
	default:
		v.Add("sortOrder", "sortOrder must be asc or desc")
	}

	if err := v.Err(); err != nil {
		return TipsterFilter{}, 0, err
	}

	return TipsterFilter{
		Platform:  strings.TrimSpace(q.Platform),
		Type:      strings.TrimSpace(q.Type),
		SortBy:    sortBy,
		SortOrder: order,
		Limit:     limit,
		Offset:    pageOffset(page, limit),
	}, page, nil
}

// TipsterPage is one page of tipsters.
type TipsterPage struct {
	Data       []*Tipster `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TipsterInput is the body of a create or update request.
type TipsterInput struct {
	ID          *string         `json:"id"`
	Name        *string         `json:"name"`
	URL         *string         `json:"url"`
	Type        *string         `json:"type"`
	Platform    *string         `json:"platform"`
	TrackedData json.RawMessage `json:"trackedData"`
}

// ValidateCreate checks the fields required for a new tipster.
func (in *TipsterInput) ValidateCreate() error {
	v := &ValidationError{}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		v.Add("name", "name is required")
	}
	if in.ID != nil && strings.TrimSpace(*in.ID) == "" {
		v.Add("id", "id must not be blank")
	}
	in.validateTrackedData(v)
	return v.Err()
}

// Patch converts the input into a partial update.
func (in *TipsterInput) Patch() (TipsterPatch, error) {
	v := &ValidationError{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		v.Add("name", "name must not be blank")
	}
	in.validateTrackedData(v)
	if err := v.Err(); err != nil {
		return TipsterPatch{}, err
	}

	p := TipsterPatch{
		Name:     in.Name,
		URL:      in.URL,
		Type:     in.Type,
		Platform: in.Platform,
	}
	if len(in.TrackedData) > 0 {
		p.TrackedData = []byte(in.TrackedData)
	}
	if p.Empty() {
		return TipsterPatch{}, ErrNoValidFields
	}
	return p, nil
}

func (in *TipsterInput) validateTrackedData(v *ValidationError) {
	if len(in.TrackedData) > 0 && !json.Valid(in.TrackedData) {
		v.Add("trackedData", "trackedData must be valid JSON")
	}
}
