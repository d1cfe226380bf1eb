package hydrate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mockdesk/dashboard/internal/debounce"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/sentflags"
	"mockdesk/dashboard/internal/workpool"
)

type fakeSource struct {
	mu         sync.Mutex
	running    int
	peak       int
	trfCalls   atomic.Int32
	failUser   string
	statusByID map[string]model.FeedbackStatus
}

func (f *fakeSource) enter() func() {
	f.mu.Lock()
	f.running++
	if f.running > f.peak {
		f.peak = f.running
	}
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}
}

func (f *fakeSource) CachedFeedbackStatus(ctx context.Context, userID, scheduleID string) (model.FeedbackRecord, error) {
	defer f.enter()()
	if userID == f.failUser {
		return model.FeedbackRecord{}, errors.New("upstream down")
	}
	return model.FeedbackRecord{FeedbackStatus: f.statusByID[userID]}, nil
}

func (f *fakeSource) TRFEmailStatus(ctx context.Context, userID, scheduleID string) (bool, error) {
	f.trfCalls.Add(1)
	return false, nil
}

func (f *fakeSource) AssignedTeachers(ctx context.Context, userID, scheduleID string) (model.TeacherAssignment, error) {
	return model.TeacherAssignment{Writing: model.Teacher{Name: "Nadia"}}, nil
}

func rows(n int) []model.Booking {
	out := make([]model.Booking, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = model.Booking{ID: "b" + id, UserID: model.Single("u" + id), ScheduleID: "s1"}
	}
	return out
}

func TestAnnotateBoundedAndOrdered(t *testing.T) {
	src := &fakeSource{statusByID: map[string]model.FeedbackStatus{
		"ua": {Listening: true, Reading: true, Writing: true, Speaking: true},
		"ub": {Listening: true},
	}}
	h := New(src, nil, workpool.New(4), nil, nil)
	out := h.Annotate(context.Background(), rows(12))
	if len(out) != 12 {
		t.Fatalf("expected 12 annotations, got %d", len(out))
	}
	if src.peak > 4 {
		t.Fatalf("concurrency %d exceeds cap", src.peak)
	}
	if !out[0].FeedbackComplete || out[0].CompletedSegments != 4 {
		t.Fatalf("unexpected first row %+v", out[0])
	}
	if out[1].FeedbackComplete || out[1].CompletedSegments != 1 || out[1].BookingID != "bb" {
		t.Fatalf("unexpected second row %+v", out[1])
	}
	if out[2].Teachers[model.SegmentWriting] != "Nadia" || out[2].Teachers[model.SegmentListening] != "Unassigned" {
		t.Fatalf("unexpected teacher labels %v", out[2].Teachers)
	}
}

func TestAnnotateIsolatesFailures(t *testing.T) {
	src := &fakeSource{failUser: "ub"}
	h := New(src, nil, workpool.New(2), nil, nil)
	out := h.Annotate(context.Background(), rows(3))
	if out[1].Error == "" || out[1].BookingID != "bb" {
		t.Fatalf("failed row should carry an error, got %+v", out[1])
	}
	if out[0].Error != "" || out[2].Error != "" {
		t.Fatalf("other rows should succeed: %+v %+v", out[0], out[2])
	}
}

func TestSentFlagShortCircuitsBackend(t *testing.T) {
	src := &fakeSource{}
	flags := sentflags.NewMemoryStore()
	_ = flags.MarkSent(context.Background(), sentflags.TRFEmail, sentflags.TRFKey("ua", "s1"))
	h := New(src, flags, workpool.New(1), nil, nil)
	out := h.Annotate(context.Background(), rows(2))
	if !out[0].TRFEmailSent || out[1].TRFEmailSent {
		t.Fatalf("unexpected sent state %+v %+v", out[0], out[1])
	}
	if src.trfCalls.Load() != 1 {
		t.Fatalf("flagged row should skip the backend, got %d calls", src.trfCalls.Load())
	}
}

func TestAbsentRowActions(t *testing.T) {
	h := New(&fakeSource{}, nil, nil, nil, nil)
	b := rows(1)
	b[0].Attendance = model.AttendanceAbsent
	out := h.Annotate(context.Background(), b)
	if out[0].Actions.CanViewTRF || out[0].Actions.CanAssignTeachers {
		t.Fatalf("absent row should disable actions")
	}
}

func TestAnnotateDebouncedSupersedes(t *testing.T) {
	h := New(&fakeSource{}, nil, nil, debounce.New(30*time.Millisecond), nil)
	first := make(chan error, 1)
	go func() {
		_, err := h.AnnotateDebounced(context.Background(), "view", rows(1))
		first <- err
	}()
	time.Sleep(5 * time.Millisecond)
	out, err := h.AnnotateDebounced(context.Background(), "view", rows(2))
	if err != nil || len(out) != 2 {
		t.Fatalf("latest request should win, got %d %v", len(out), err)
	}
	if err := <-first; !errors.Is(err, debounce.ErrSuperseded) {
		t.Fatalf("earlier request should be superseded, got %v", err)
	}
}
