package listing

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is anything the engine can filter and sort.
type Record interface {
	Field(name string) string
	SearchText() []string
	DateValue() string
}

type Query struct {
	Search   string
	Filters  map[string]string
	Window   Window
	Location *time.Location
	Now      time.Time
	SortKey  string
	Desc     bool
	Page     int
	PageSize int
}

// Meta describes one page of a filtered collection.
type Meta struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
	NextPage   *int `json:"next_page,omitempty"`
	PrevPage   *int `json:"prev_page,omitempty"`
}

type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

const DefaultPageSize = 10

// dateFields are compared as civil dates in the query location.
var dateFields = map[string]bool{"date": true, "startDate": true}

// Filter returns the records matching the search text, equality filters and window,
// in their original order.
func Filter[T Record](items []T, q Query) []T {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	today := Today(q.now(), q.Location)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if search != "" && !matchesSearch(item, search) {
			continue
		}
		if !matchesFilters(item, q) {
			continue
		}
		if !q.Window.Matches(CivilDate(item.DateValue(), q.Location), today) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(item Record, search string) bool {
	for _, text := range item.SearchText() {
		if strings.Contains(strings.ToLower(text), search) {
			return true
		}
	}
	return false
}

func matchesFilters(item Record, q Query) bool {
	for key, want := range q.Filters {
		want = strings.TrimSpace(want)
		if want == "" || strings.EqualFold(want, "all") {
			continue
		}
		got := item.Field(key)
		if dateFields[key] {
			if CivilDate(got, q.Location) != CivilDate(want, q.Location) {
				return false
			}
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(got), want) {
			return false
		}
	}
	return true
}

// Sort orders items in place by the query's sort key. The sort is stable so equal
// keys keep their upstream order.
func Sort[T Record](items []T, q Query) {
	if q.SortKey == "" {
		return
	}
	key := q.SortKey
	sort.SliceStable(items, func(i, j int) bool {
		a, b := sortValue(items[i], key, q.Location), sortValue(items[j], key, q.Location)
		c := compareValues(a, b)
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
}

func sortValue(item Record, key string, loc *time.Location) string {
	v := item.Field(key)
	if dateFields[key] {
		if d := CivilDate(v, loc); d != "" {
			return d
		}
	}
	return v
}

// compareValues compares numerically when both values are numbers and
// case-insensitively otherwise. Empty values sort last in ascending order.
func compareValues(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Paginate slices items for the requested page. The page is clamped into
// [1, max(1, totalPages)] so a shrinking result never leaves the caller on an
// empty trailing page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(size)))
	}
	page = ClampPage(page, totalPages)

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	meta := Meta{
		Page:       page,
		PerPage:    size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    totalPages > 0 && page < totalPages,
	}
	if meta.HasPrev {
		prev := page - 1
		meta.PrevPage = &prev
	}
	if meta.HasNext {
		next := page + 1
		meta.NextPage = &next
	}
	return Page[T]{Items: append([]T(nil), items[start:end]...), Meta: meta}
}

func ClampPage(page, totalPages int) int {
	maxPage := totalPages
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// Apply filters, sorts and paginates items. The input slice is not modified.
func Apply[T Record](items []T, q Query) Page[T] {
	filtered := Filter(items, q)
	Sort(filtered, q)
	return Paginate(filtered, q.Page, q.PageSize)
}

func (q Query) now() time.Time {
	if q.Now.IsZero() {
		return time.Now()
	}
	return q.Now
}
