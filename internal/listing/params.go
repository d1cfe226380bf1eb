package listing

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const MaxPageSize = 500

// FilterKeys are the equality filters accepted from query strings.
var FilterKeys = []string{"testType", "testSystem", "course", "date", "blocked", "attendance", "status", "bookingType", "scheduleId"}

// ParseQuery reads search, filter, window, sort and page parameters from a URL query.
func ParseQuery(values url.Values, loc *time.Location, defaultSort string) Query {
	q := Query{
		Search:   strings.TrimSpace(firstNonEmpty(values.Get("search"), values.Get("q"))),
		Filters:  map[string]string{},
		Window:   ParseWindow(values.Get("window")),
		Location: loc,
		SortKey:  strings.TrimSpace(values.Get("sort_by")),
		Page:     atoiDefault(values.Get("page"), 1),
		PageSize: atoiDefault(firstNonEmpty(values.Get("per_page"), values.Get("limit")), DefaultPageSize),
	}
	for _, key := range FilterKeys {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			q.Filters[key] = v
		}
	}
	if q.SortKey == "" {
		q.SortKey = defaultSort
	}
	order := strings.ToLower(strings.TrimSpace(firstNonEmpty(values.Get("order"), values.Get("sort"))))
	q.Desc = order == "desc"
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
