package model

import "testing"

func ptr(f float64) *float64 { return &f }

func TestOverallBandRounding(t *testing.T) {
	cases := []struct {
		l, r, w, s float64
		expected   float64
	}{
		{6.5, 6.5, 5.0, 7.0, 6.5}, // 6.25
		{4.0, 3.5, 4.0, 5.0, 4.0}, // 4.125
		{6.5, 6.5, 5.5, 6.5, 6.5}, // 6.25
		{7.0, 7.5, 7.0, 7.5, 7.5}, // 7.25
		{7.5, 7.5, 7.0, 7.0, 7.5}, // 7.25
		{8.0, 8.0, 7.5, 7.5, 8.0}, // 7.75
		{6.0, 6.0, 6.0, 6.5, 6.0}, // 6.125
		{9.0, 9.0, 9.0, 9.0, 9.0},
	}
	for _, c := range cases {
		if got := OverallBand(c.l, c.r, c.w, c.s); got != c.expected {
			t.Fatalf("bands %v/%v/%v/%v expected %v got %v", c.l, c.r, c.w, c.s, c.expected, got)
		}
	}
}

func TestCEFRLevel(t *testing.T) {
	cases := map[float64]string{9: "C2", 8.5: "C2", 7: "C1", 6.5: "B2", 5.5: "B2", 4: "B1", 3: "A2", 1: "A1"}
	for band, expected := range cases {
		if got := CEFRLevel(band); got != expected {
			t.Fatalf("band %v expected %s got %s", band, expected, got)
		}
	}
}

func TestFeedbackStatus(t *testing.T) {
	var status FeedbackStatus
	if status.Complete() || status.CompletedCount() != 0 {
		t.Fatalf("empty status should not be complete")
	}
	for i, seg := range Segments {
		status = status.With(seg)
		if !status.Saved(seg) {
			t.Fatalf("segment %s should be saved", seg)
		}
		if status.CompletedCount() != i+1 {
			t.Fatalf("expected %d completed", i+1)
		}
	}
	if !status.Complete() {
		t.Fatalf("expected complete status")
	}
}

func TestMarksMergeAndOverall(t *testing.T) {
	m := Marks{Listening: ptr(6)}
	if _, ok := m.Overall(); ok {
		t.Fatalf("overall needs all four bands")
	}
	m = m.Merge(SegmentReading, Marks{Reading: ptr(6.5), Listening: ptr(1)})
	if *m.Listening != 6 {
		t.Fatalf("merge should only touch the given segment")
	}
	m = m.Merge(SegmentWriting, Marks{Writing: ptr(6)})
	m = m.Merge(SegmentSpeaking, Marks{Speaking: ptr(7)})
	overall, ok := m.Overall()
	if !ok || overall != 6.5 {
		t.Fatalf("expected 6.5 got %v", overall)
	}
}

func TestTeacherLabels(t *testing.T) {
	a := TeacherAssignment{
		Listening: Teacher{Name: "Nadia"},
		Reading:   Teacher{Email: "r@example.com"},
	}
	labels := a.Labels()
	if labels[SegmentListening] != "Nadia" || labels[SegmentReading] != "r@example.com" || labels[SegmentWriting] != "Unassigned" {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestParseSegment(t *testing.T) {
	if seg, err := ParseSegment(" Writing "); err != nil || seg != SegmentWriting {
		t.Fatalf("expected writing, got %s %v", seg, err)
	}
	if _, err := ParseSegment("grammar"); err == nil {
		t.Fatalf("expected error for unknown segment")
	}
}
