// Package paging implements the 1-based page protocol shared by the list
// endpoints: page/size normalization, the date-bound defaulting rule and the
// windowed page-number block returned to the client.
package paging

import "time"

const (
	DefaultPage = 1
	DefaultSize = 10

	// pages are presented to the client in blocks of this many numbers
	blockSize = 10
)

// earliest stands in for "no lower bound" when only an upper date bound was
// supplied.
var earliest = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Request is a 1-based page request. From and To are date-granular bounds;
// either may be nil.
type Request struct {
	Page int
	Size int
	Sort string
	From *time.Time
	To   *time.Time
}

// Normalized clamps page and size to usable values.
func (r Request) Normalized() Request {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Size < 1 {
		r.Size = DefaultSize
	}
	return r
}

// Offset converts the 1-based page to a row offset.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Size
}

// DateBounds resolves the effective datetime window. When neither bound was
// supplied, ok is false and no date filter applies. Otherwise a missing start
// defaults to 1900-01-01 and a missing end to the start plus one day; the
// bounds then expand to start-of-day and end-of-day.
func (r Request) DateBounds() (from, to time.Time, ok bool) {
	if r.From == nil && r.To == nil {
		return time.Time{}, time.Time{}, false
	}

	from = earliest
	if r.From != nil {
		from = *r.From
	}
	from = startOfDay(from)

	if r.To != nil {
		to = *r.To
	} else {
		to = from.AddDate(0, 0, 1)
	}
	to = endOfDay(to)

	return from, to, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Response is one page of results plus the navigation window the client
// renders: the current block of page numbers and prev/next block jumps.
type Response[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageNums   []int `json:"pageNums"`
	Prev       bool  `json:"prev"`
	Next       bool  `json:"next"`
	PrevPage   int   `json:"prevPage,omitempty"`
	NextPage   int   `json:"nextPage,omitempty"`
	TotalPage  int   `json:"totalPage"`
	Current    int   `json:"current"`
	Size       int   `json:"size"`
}

// NewResponse builds the navigation window for req around one page of items.
// A page past the available range yields an empty item list, never an error.
func NewResponse[T any](items []T, totalCount int64, req Request) Response[T] {
	req = req.Normalized()

	end := ((req.Page + blockSize - 1) / blockSize) * blockSize
	start := end - (blockSize - 1)

	last := int((totalCount + int64(req.Size) - 1) / int64(req.Size))
	if end > last {
		end = last
	}

	var nums []int
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}

	resp := Response[T]{
		Items:      items,
		TotalCount: totalCount,
		PageNums:   nums,
		Prev:       start > 1,
		Next:       totalCount > int64(end*req.Size),
		TotalPage:  len(nums),
		Current:    req.Page,
		Size:       req.Size,
	}
	if resp.Prev {
		resp.PrevPage = start - 1
	}
	if resp.Next {
		resp.NextPage = end + 1
	}
	return resp
}
