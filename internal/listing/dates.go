package listing

import (
	"strings"
	"time"
)

const civilLayout = "2006-01-02"

// CivilDate normalizes a date string to YYYY-MM-DD in loc. Timestamps carrying an
// offset are converted into loc first; bare dates are taken as already civil.
// Unparseable input returns "".
func CivilDate(value string, loc *time.Location) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05Z07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc).Format(civilLayout)
		}
	}
	if len(value) >= len(civilLayout) {
		if t, err := time.ParseInLocation(civilLayout, value[:len(civilLayout)], loc); err == nil {
			return t.Format(civilLayout)
		}
	}
	return ""
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(civilLayout)
}

type Window string

const (
	WindowAll      Window = "all"
	WindowPast     Window = "past"
	WindowToday    Window = "today"
	WindowUpcoming Window = "upcoming"
)

func ParseWindow(value string) Window {
	switch Window(strings.ToLower(strings.TrimSpace(value))) {
	case WindowPast:
		return WindowPast
	case WindowToday:
		return WindowToday
	case WindowUpcoming:
		return WindowUpcoming
	default:
		return WindowAll
	}
}

// Matches reports whether a civil date falls in the window relative to today.
// Past includes today. Records without a date only match WindowAll.
func (w Window) Matches(date, today string) bool {
	if w == WindowAll || w == "" {
		return true
	}
	if date == "" {
		return false
	}
	switch w {
	case WindowPast:
		return date <= today
	case WindowToday:
		return date == today
	case WindowUpcoming:
		return date > today
	}
	return true
}
