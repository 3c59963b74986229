package core

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: the computed offset never overflows and never goes negative.
func TestParsePaging(t *testing.T) {
	tests := []struct {
		name       string
		page       string
		limit      string
		wantPage   int
		wantLimit  int
		wantOffset int
		wantField  string
	}{
		{name: "defaults", wantPage: 1, wantLimit: DefaultPageLimit},
		{name: "explicit", page: "3", limit: "10", wantPage: 3, wantLimit: 10, wantOffset: 20},
		{name: "limit clamped", limit: "1000", wantPage: 1, wantLimit: MaxPageLimit},
		{
			name:       "last representable page",
			page:       strconv.Itoa(MaxOffset/MaxPageLimit + 1),
			limit:      "100",
			wantPage:   MaxOffset/MaxPageLimit + 1,
			wantLimit:  MaxPageLimit,
			wantOffset: MaxOffset / MaxPageLimit * MaxPageLimit,
		},
		{name: "max int page", page: strconv.Itoa(math.MaxInt), limit: "100", wantPage: 1, wantLimit: MaxPageLimit, wantField: "page"},
		{name: "overflow with limit one", page: strconv.FormatInt(int64(MaxOffset)+2, 10), limit: "1", wantPage: 1, wantLimit: 1, wantField: "page"},
		{name: "page out of int range", page: "99999999999999999999", wantPage: 1, wantLimit: DefaultPageLimit, wantField: "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			v := &ValidationError{}

			// Act
			page, limit := parsePaging(v, tt.page, tt.limit)

			// Assert
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
			offset := pageOffset(page, limit)
			assert.GreaterOrEqual(t, offset, 0)
			if tt.wantField == "" {
				require.NoError(t, v.Err())
				assert.Equal(t, tt.wantOffset, offset)
				return
			}
			require.Len(t, v.Fields, 1)
			assert.Equal(t, tt.wantField, v.Fields[0].Field)
		})
	}
}

func TestNewPagination(t *testing.T) {
	got := NewPagination(2, 10, 25)

	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, HasNext: true, HasPrevious: true, Limit: 10}, got)
}
