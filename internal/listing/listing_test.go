package listing

import (
	"fmt"
	"testing"
	"time"

	"mockdesk/dashboard/internal/model"
)

var dhaka = time.FixedZone("Asia/Dhaka", 6*60*60)

func bookings(n int) []model.Booking {
	out := make([]model.Booking, n)
	for i := range out {
		out[i] = model.Booking{ID: fmt.Sprintf("b%03d", i), Name: fmt.Sprintf("Candidate %03d", i)}
	}
	return out
}

func TestPaginateCeilAndBounds(t *testing.T) {
	items := bookings(23)
	cases := []struct {
		page, size   int
		first, count int
		pages        int
	}{
		{1, 10, 0, 10, 3},
		{2, 10, 10, 10, 3},
		{3, 10, 20, 3, 3},
		{1, 23, 0, 23, 1},
		{2, 5, 5, 5, 5},
	}
	for _, c := range cases {
		page := Paginate(items, c.page, c.size)
		if page.Meta.TotalPages != c.pages {
			t.Fatalf("size %d expected %d pages got %d", c.size, c.pages, page.Meta.TotalPages)
		}
		if len(page.Items) != c.count {
			t.Fatalf("page %d size %d expected %d items got %d", c.page, c.size, c.count, len(page.Items))
		}
		if page.Items[0].ID != items[c.first].ID {
			t.Fatalf("page %d size %d starts at %s", c.page, c.size, page.Items[0].ID)
		}
	}
}

func TestPaginateClampsPage(t *testing.T) {
	page := Paginate(bookings(12), 9, 5)
	if page.Meta.Page != 3 || len(page.Items) != 2 {
		t.Fatalf("expected clamp to page 3, got %+v", page.Meta)
	}
	if page.Meta.HasNext || !page.Meta.HasPrev || *page.Meta.PrevPage != 2 {
		t.Fatalf("unexpected nav meta %+v", page.Meta)
	}
	empty := Paginate([]model.Booking{}, 4, 10)
	if empty.Meta.Page != 1 || empty.Meta.TotalPages != 0 || len(empty.Items) != 0 {
		t.Fatalf("unexpected empty meta %+v", empty.Meta)
	}
	if got := Paginate(bookings(3), 0, 10).Meta.Page; got != 1 {
		t.Fatalf("page below 1 should clamp to 1, got %d", got)
	}
}

func TestSearchAndFilters(t *testing.T) {
	items := []model.Booking{
		{ID: "1", Name: "Ayesha Rahman", Email: "ayesha@example.com", TestType: "Academic", Attendance: model.AttendancePresent},
		{ID: "2", Name: "Karim", Email: "KARIM@example.com", TestType: "General", Attendance: model.AttendanceAbsent},
		{ID: "3", Name: "Nusrat", Email: "nusrat@example.com", TestType: "Academic"},
	}
	page := Apply(items, Query{Search: "karim", PageSize: 10, Page: 1})
	if page.Meta.Total != 1 || page.Items[0].ID != "2" {
		t.Fatalf("search should match email case-insensitively, got %+v", page.Items)
	}
	page = Apply(items, Query{Filters: map[string]string{"testType": "academic", "attendance": "N/A"}, PageSize: 10, Page: 1})
	if page.Meta.Total != 1 || page.Items[0].ID != "3" {
		t.Fatalf("filters should combine, got %+v", page.Items)
	}
	page = Apply(items, Query{Filters: map[string]string{"testType": "all"}, PageSize: 10, Page: 1})
	if page.Meta.Total != 3 {
		t.Fatalf("all should not filter, got %d", page.Meta.Total)
	}
}

func TestSortStableAndNumeric(t *testing.T) {
	users := []model.User{
		{ID: "a", Name: "Zed", TotalMock: 10},
		{ID: "b", Name: "amy", TotalMock: 2},
		{ID: "c", Name: "Bob", TotalMock: 2},
	}
	page := Apply(users, Query{SortKey: "totalMock", Page: 1, PageSize: 10})
	if page.Items[0].ID != "b" || page.Items[1].ID != "c" || page.Items[2].ID != "a" {
		t.Fatalf("expected numeric stable order, got %v %v %v", page.Items[0].ID, page.Items[1].ID, page.Items[2].ID)
	}
	page = Apply(users, Query{SortKey: "name", Desc: true, Page: 1, PageSize: 10})
	if page.Items[0].ID != "a" || page.Items[2].ID != "b" {
		t.Fatalf("expected case-insensitive desc order, got %v", page.Items)
	}
	if users[0].ID != "a" {
		t.Fatalf("input should not be reordered")
	}
}

func TestCivilDateDhaka(t *testing.T) {
	cases := map[string]string{
		"2026-03-10T18:30:00Z":      "2026-03-11",
		"2026-03-10T17:59:59Z":      "2026-03-10",
		"2026-03-11T00:30:00+06:00": "2026-03-11",
		"2026-03-11":                "2026-03-11",
		"2026-03-11T09:00:00":       "2026-03-11",
		"garbage":                   "",
	}
	for input, expected := range cases {
		if got := CivilDate(input, dhaka); got != expected {
			t.Fatalf("%s expected %s got %s", input, expected, got)
		}
	}
}

func TestWindowAcrossUTCMidnight(t *testing.T) {
	schedules := []model.Schedule{
		{ID: "today", StartDate: "2026-03-10T18:30:00Z"},
		{ID: "yesterday", StartDate: "2026-03-10"},
		{ID: "tomorrow", StartDate: "2026-03-12"},
	}
	// 00:30 Dhaka is 18:30 UTC the previous day; 23:30 Dhaka is 17:30 UTC the same day.
	for _, now := range []time.Time{
		time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 17, 30, 0, 0, time.UTC),
	} {
		past := Apply(schedules, Query{Window: WindowPast, Location: dhaka, Now: now, Page: 1, PageSize: 10})
		if !containsID(past.Items, "today") || !containsID(past.Items, "yesterday") || containsID(past.Items, "tomorrow") {
			t.Fatalf("now %s: unexpected past %v", now, past.Items)
		}
		upcoming := Apply(schedules, Query{Window: WindowUpcoming, Location: dhaka, Now: now, Page: 1, PageSize: 10})
		if containsID(upcoming.Items, "today") || !containsID(upcoming.Items, "tomorrow") {
			t.Fatalf("now %s: unexpected upcoming %v", now, upcoming.Items)
		}
		today := Apply(schedules, Query{Window: WindowToday, Location: dhaka, Now: now, Page: 1, PageSize: 10})
		if today.Meta.Total != 1 || today.Items[0].ID != "today" {
			t.Fatalf("now %s: unexpected today %v", now, today.Items)
		}
	}
}

func TestDateFilterUsesCivilDate(t *testing.T) {
	items := []model.Booking{{ID: "1", Date: "2026-03-10T18:30:00Z"}, {ID: "2", Date: "2026-03-10"}}
	page := Apply(items, Query{Filters: map[string]string{"date": "2026-03-11"}, Location: dhaka, Page: 1, PageSize: 10})
	if page.Meta.Total != 1 || page.Items[0].ID != "1" {
		t.Fatalf("expected Dhaka civil match, got %v", page.Items)
	}
}

func containsID(items []model.Schedule, id string) bool {
	for _, s := range items {
		if s.ID == id {
			return true
		}
	}
	return false
}
