package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/services/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedTipsters(t *testing.T, svc *TipsterService, n int) {
	t.Helper()
	platforms := []string{"telegram", "twitter"}
	for i := 0; i < n; i++ {
		_, err := svc.Create(context.Background(), core.TipsterInput{
			ID:       strPtr(fmt.Sprintf("t%02d", i)),
			Name:     strPtr(fmt.Sprintf("Tipster %02d", i)),
			Platform: strPtr(platforms[i%2]),
		})
		require.NoError(t, err)
	}
}

func TestTipsterService_List_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		query     core.TipsterQuery
		wantCount int
		wantPage  core.Pagination
		wantFirst string
	}{
		{
			name:      "defaults",
			query:     core.TipsterQuery{},
			wantCount: 20,
			wantPage:  core.Pagination{CurrentPage: 1, TotalPages: 2, TotalItems: 25, HasNext: true, HasPrevious: false, Limit: 20},
			wantFirst: "Tipster 00",
		},
		{
			name:      "second page",
			query:     core.TipsterQuery{Page: "2", Limit: "10"},
			wantCount: 10,
			wantPage:  core.Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, HasNext: true, HasPrevious: true, Limit: 10},
			wantFirst: "Tipster 10",
		},
		{
			name:      "limit capped at 100",
			query:     core.TipsterQuery{Limit: "500"},
			wantCount: 25,
			wantPage:  core.Pagination{CurrentPage: 1, TotalPages: 1, TotalItems: 25, Limit: 100},
			wantFirst: "Tipster 00",
		},
		{
			name:      "platform filter sorted desc",
			query:     core.TipsterQuery{Platform: "twitter", SortBy: "name", SortOrder: "desc"},
			wantCount: 12,
			wantPage:  core.Pagination{CurrentPage: 1, TotalPages: 1, TotalItems: 12, Limit: 20},
			wantFirst: "Tipster 23",
		},
		{
			name:      "page past the end",
			query:     core.TipsterQuery{Page: "9"},
			wantCount: 0,
			wantPage:  core.Pagination{CurrentPage: 9, TotalPages: 2, TotalItems: 25, HasPrevious: true, Limit: 20},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc := NewTipsterService(servicetest.NewFakeStorage(), 0, nil)
			seedTipsters(t, svc, 25)

			// Act
			page, err := svc.List(context.Background(), test.query)

			// Assert
			require.NoError(t, err)
			assert.Len(t, page.Data, test.wantCount)
			assert.Equal(t, test.wantPage, page.Pagination)
			if test.wantFirst != "" {
				assert.Equal(t, test.wantFirst, page.Data[0].Name)
			}
			assert.NotNil(t, page.Data)
		})
	}
}

func TestTipsterService_List_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query core.TipsterQuery
		field string
	}{
		{name: "page zero", query: core.TipsterQuery{Page: "0"}, field: "page"},
		{name: "page text", query: core.TipsterQuery{Page: "two"}, field: "page"},
		{name: "negative limit", query: core.TipsterQuery{Limit: "-5"}, field: "limit"},
		{name: "sort injection", query: core.TipsterQuery{SortBy: "name; DROP TABLE tipsters"}, field: "sortBy"},
		{name: "bad order", query: core.TipsterQuery{SortOrder: "sideways"}, field: "sortOrder"},
		{name: "page overflows offset", query: core.TipsterQuery{Page: "9223372036854775807", Limit: "100"}, field: "page"},
		{name: "page past max offset", query: core.TipsterQuery{Page: "2147483647", Limit: "2"}, field: "page"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc := NewTipsterService(servicetest.NewFakeStorage(), 0, nil)

			_, err := svc.List(context.Background(), test.query)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, test.field, verr.Fields[0].Field)
		})
	}
}

func TestTipsterService_Create(t *testing.T) {
	storage := servicetest.NewFakeStorage()
	svc := NewTipsterService(storage, 0, nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	created, err := svc.Create(context.Background(), core.TipsterInput{
		Name:        strPtr("  Sharp Picks "),
		TrackedData: json.RawMessage(`{"1_months":{"roi":4.2}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("tipster_%d", fixed.UnixMilli()), created.ID)
	assert.Equal(t, "Sharp Picks", created.Name)

	_, err = svc.Create(context.Background(), core.TipsterInput{ID: strPtr(created.ID), Name: strPtr("Again")})
	assert.ErrorIs(t, err, core.ErrTipsterExists)

	_, err = svc.Create(context.Background(), core.TipsterInput{})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(context.Background(), core.TipsterInput{Name: strPtr("x"), TrackedData: json.RawMessage(`{broken`)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "trackedData", verr.Fields[0].Field)
}

func TestTipsterService_UpdateDelete(t *testing.T) {
	svc := NewTipsterService(servicetest.NewFakeStorage(), 0, nil)
	seedTipsters(t, svc, 1)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "t00", core.TipsterInput{Name: strPtr(" Renamed "), URL: strPtr("https://t.me/x")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "https://t.me/x", *updated.URL)

	_, err = svc.Update(ctx, "t00", core.TipsterInput{})
	assert.ErrorIs(t, err, core.ErrNoValidFields)

	_, err = svc.Update(ctx, "missing", core.TipsterInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, core.ErrTipsterNotFound)

	require.NoError(t, svc.Delete(ctx, "t00"))
	assert.ErrorIs(t, svc.Delete(ctx, "t00"), core.ErrTipsterNotFound)

	_, err = svc.Get(ctx, "t00")
	assert.ErrorIs(t, err, core.ErrTipsterNotFound)
}
