package listing

import (
	"net/url"
	"testing"
)

func TestParseQuery(t *testing.T) {
	values, _ := url.Parse("/bookings?search=%20ayesha%20&testType=Academic&window=past&sort_by=date&order=desc&page=2&limit=9999")
	q := ParseQuery(values.Query(), dhaka, "name")
	if q.Search != "ayesha" || q.Filters["testType"] != "Academic" || q.Window != WindowPast {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.SortKey != "date" || !q.Desc || q.Page != 2 || q.PageSize != MaxPageSize {
		t.Fatalf("unexpected paging %+v", q)
	}

	values, _ = url.Parse("/bookings?page=-3&per_page=abc")
	q = ParseQuery(values.Query(), dhaka, "name")
	if q.Page != 1 || q.PageSize != DefaultPageSize || q.SortKey != "name" || q.Desc || q.Window != WindowAll {
		t.Fatalf("unexpected defaults %+v", q)
	}
}
