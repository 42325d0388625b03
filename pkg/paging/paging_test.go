package paging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalized(t *testing.T) {
	testCases := map[string]struct {
		in       Request
		wantPage int
		wantSize int
	}{
		"zero values get defaults":  {in: Request{}, wantPage: 1, wantSize: 10},
		"negative page clamps":      {in: Request{Page: -3, Size: 5}, wantPage: 1, wantSize: 5},
		"valid request passes":      {in: Request{Page: 4, Size: 25}, wantPage: 4, wantSize: 25},
		"zero size gets default":    {in: Request{Page: 2}, wantPage: 2, wantSize: 10},
		"negative size gets default": {in: Request{Page: 2, Size: -1}, wantPage: 2, wantSize: 10},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := tc.in.Normalized()
			assert.Equal(t, tc.wantPage, got.Page)
			assert.Equal(t, tc.wantSize, got.Size)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Request{Page: 1, Size: 10}.Offset())
	assert.Equal(t, 20, Request{Page: 3, Size: 10}.Offset())
}

func TestDateBounds(t *testing.T) {
	t.Run("no bounds", func(t *testing.T) {
		_, _, ok := Request{}.DateBounds()
		assert.False(t, ok)
	})

	t.Run("both bounds expand to whole days", func(t *testing.T) {
		from, to, ok := Request{
			From: date(2025, time.March, 1),
			To:   date(2025, time.March, 31),
		}.DateBounds()
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, 2025, to.Year())
		assert.Equal(t, 31, to.Day())
		assert.Equal(t, 23, to.Hour())
		assert.Equal(t, 59, to.Minute())
	})

	t.Run("missing start defaults to 1900-01-01", func(t *testing.T) {
		from, to, ok := Request{To: date(2025, time.March, 31)}.DateBounds()
		require.True(t, ok)
		assert.Equal(t, time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, 31, to.Day())
	})

	t.Run("missing end defaults to start plus one day", func(t *testing.T) {
		from, to, ok := Request{From: date(2025, time.March, 10)}.DateBounds()
		require.True(t, ok)
		assert.Equal(t, 10, from.Day())
		assert.Equal(t, 11, to.Day())
		assert.Equal(t, 23, to.Hour())
	})
}

func TestNewResponse(t *testing.T) {
	testCases := map[string]struct {
		items      int
		total      int64
		page       int
		size       int
		wantNums   []int
		wantPrev   bool
		wantNext   bool
		wantPrevPg int
		wantNextPg int
	}{
		"single short page": {
			items: 3, total: 3, page: 1, size: 10,
			wantNums: []int{1},
		},
		"middle of first block": {
			items: 10, total: 25, page: 2, size: 10,
			wantNums: []int{1, 2, 3},
		},
		"last page of first block": {
			items: 5, total: 25, page: 3, size: 10,
			wantNums: []int{1, 2, 3},
		},
		"page beyond range": {
			items: 0, total: 25, page: 4, size: 10,
			wantNums: []int{1, 2, 3},
		},
		"second block": {
			items: 10, total: 250, page: 11, size: 10,
			wantNums: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			wantPrev: true, wantNext: true,
			wantPrevPg: 10, wantNextPg: 21,
		},
		"empty result": {
			items: 0, total: 0, page: 1, size: 10,
			wantNums: nil,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			items := make([]int, tc.items)
			resp := NewResponse(items, tc.total, Request{Page: tc.page, Size: tc.size})

			assert.Equal(t, tc.wantNums, resp.PageNums)
			assert.Equal(t, tc.total, resp.TotalCount)
			assert.Equal(t, tc.wantPrev, resp.Prev)
			assert.Equal(t, tc.wantNext, resp.Next)
			assert.Equal(t, tc.wantPrevPg, resp.PrevPage)
			assert.Equal(t, tc.wantNextPg, resp.NextPage)
			assert.Equal(t, tc.page, resp.Current)
			assert.Equal(t, len(tc.wantNums), resp.TotalPage)
		})
	}
}
