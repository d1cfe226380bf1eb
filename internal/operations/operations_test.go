package operations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/db"
	"mockdesk/dashboard/internal/mail"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/sentflags"
)

type fakeUpstream struct {
	mu         sync.Mutex
	requests   []string
	bodies     map[string]string
	attendance string
	status     string
	failTRF    bool
}

func (u *fakeUpstream) count(prefix string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, r := range u.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (u *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	u.mu.Lock()
	u.requests = append(u.requests, key)
	if u.bodies == nil {
		u.bodies = map[string]string{}
	}
	u.bodies[key] = string(body)
	attendance, status, failTRF := u.attendance, u.status, u.failTRF
	u.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/assigned-teachers/u1/s1":
		_, _ = io.WriteString(w, `{"listening":{"name":"Nadia","email":"nadia@example.com"},"writing":{"name":"Omar","email":"omar@example.com"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/feedback-status/u1/s1":
		if status == "" {
			status = `{"reading":true,"marks":{"reading":6.5},"feedback":{"reading":"ok"}}`
		}
		_, _ = io.WriteString(w, status)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/bookings/by-schedule/s1":
		_, _ = io.WriteString(w, `{"bookings":[{"_id":"b1","userId":"u1","scheduleId":"s1","testName":"IELTS Mock","testType":"Academic","testSystem":"IELTS","date":"2026-03-11","attendance":"`+attendance+`"}],"total":1}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/users":
		_, _ = io.WriteString(w, `{"users":[{"_id":"u1","name":"Ayesha Rahman","email":"ayesha@example.com"}],"total":1}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/get-schedules":
		_, _ = io.WriteString(w, `[{"_id":"s1","name":"March","testType":"Academic","timeSlots":[{"slotId":"a","availableSlot":2},{"slotId":"full","availableSlot":0}]}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/get-admin-section/u1/s1":
		http.Error(w, "none", http.StatusNotFound)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v1/admin/send-trf-email/"):
		if failTRF {
			http.Error(w, "smtp down", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"message":"sent"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/user/book-slot":
		_, _ = io.WriteString(w, `{"booking":{"_id":"b9","userId":"u1","scheduleId":"s1"}}`)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func newService(t *testing.T, up *fakeUpstream, opts Options) *Service {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)
	opts.Backend = backend.New(backend.Options{BaseURL: srv.URL})
	return New(opts)
}

func codeOf(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ""
}

func ptr(f float64) *float64 { return &f }

func teacher(email string) *auth.Claims {
	return &auth.Claims{Email: email, Role: auth.RoleTeacher}
}

func TestSaveFeedbackRejectsWrongTeacherBeforeSaving(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	_, err := s.SaveFeedback(context.Background(), teacher("omar@example.com"), FeedbackInput{
		UserID: "u1", ScheduleID: "s1", Segment: "listening", Marks: model.Marks{Listening: ptr(7)},
	})
	if codeOf(err) != ErrNotAssignedTeacher {
		t.Fatalf("expected not_assigned_teacher, got %v", err)
	}
	if up.count("POST /api/v1/admin/save-feedback") != 0 || up.count("PUT /api/v1/admin/feedback-status") != 0 {
		t.Fatalf("no save request may reach the backend, got %v", up.requests)
	}
}

func TestSaveFeedbackByAssignedTeacher(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	status, err := s.SaveFeedback(context.Background(), teacher(" NADIA@example.com "), FeedbackInput{
		UserID: "u1", ScheduleID: "s1", Segment: "Listening", Marks: model.Marks{Listening: ptr(7)}, Feedback: "Good",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Listening || !status.Reading {
		t.Fatalf("status should keep reading and add listening, got %+v", status)
	}
	var saved backend.FeedbackSave
	if err := json.Unmarshal([]byte(up.bodies["POST /api/v1/admin/save-feedback"]), &saved); err != nil {
		t.Fatalf("decode save: %v", err)
	}
	if *saved.Marks.Listening != 7 || *saved.Marks.Reading != 6.5 || saved.Feedback.Reading != "ok" || saved.Feedback.Listening != "Good" {
		t.Fatalf("save should merge into existing record, got %+v", saved)
	}
}

func TestSaveFeedbackLockedSegment(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	_, err := s.SaveFeedback(context.Background(), &auth.Claims{Role: auth.RoleAdmin}, FeedbackInput{
		UserID: "u1", ScheduleID: "s1", Segment: "reading", Marks: model.Marks{Reading: ptr(7)},
	})
	if codeOf(err) != ErrSegmentLocked {
		t.Fatalf("expected segment_locked, got %v", err)
	}
	if up.count("POST /api/v1/admin/save-feedback") != 0 {
		t.Fatalf("locked segment must not be saved")
	}
}

func TestSaveFeedbackValidation(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	admin := &auth.Claims{Role: auth.RoleAdmin}
	_, err := s.SaveFeedback(context.Background(), admin, FeedbackInput{UserID: "u1", ScheduleID: "s1", Segment: "writing", Marks: model.Marks{Writing: ptr(6.3)}})
	var opErr *Error
	if !errors.As(err, &opErr) || opErr.Code != ErrValidationFailed || opErr.Fields["marks.writing"] != "band" {
		t.Fatalf("expected band validation error, got %v", err)
	}
	_, err = s.SaveFeedback(context.Background(), admin, FeedbackInput{UserID: "u1", ScheduleID: "s1", Segment: "writing"})
	if codeOf(err) != ErrValidationFailed {
		t.Fatalf("missing band should fail validation, got %v", err)
	}
	_, err = s.SaveFeedback(context.Background(), admin, FeedbackInput{Segment: "grammar"})
	if codeOf(err) != ErrInvalidSegment {
		t.Fatalf("expected invalid_segment, got %v", err)
	}
	if _, err := s.SaveFeedback(context.Background(), &auth.Claims{Role: auth.RoleBDM}, FeedbackInput{Segment: "writing"}); codeOf(err) != ErrForbidden {
		t.Fatalf("bdm should be forbidden, got %v", err)
	}
}

func TestUpdateAttendanceReturnsActions(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	res, err := s.UpdateAttendance(context.Background(), model.AttendanceUpdate{UserID: "u1", ScheduleID: "s1", Attendance: " ABSENT "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attendance != model.AttendanceAbsent {
		t.Fatalf("expected normalized absent, got %q", res.Attendance)
	}
	if res.Actions.CanViewTRF || res.Actions.CanAssignTeachers {
		t.Fatalf("absent must disable actions, got %+v", res.Actions)
	}
	if up.count("PUT /api/v1/user/bookings/s1") != 1 {
		t.Fatalf("expected schedule booking update, got %v", up.requests)
	}
	res, err = s.UpdateAttendance(context.Background(), model.AttendanceUpdate{UserID: "u1", Attendance: "present"})
	if err != nil || !res.Actions.CanViewTRF || up.count("PUT /api/v1/user/bookings/home") != 1 {
		t.Fatalf("home booking update failed: %+v %v", res, err)
	}
	if _, err := s.UpdateAttendance(context.Background(), model.AttendanceUpdate{UserID: "u1", Attendance: "late"}); codeOf(err) != ErrInvalidAttendance {
		t.Fatalf("expected invalid_attendance, got %v", err)
	}
}

func TestAssignTeachersRejectsAbsent(t *testing.T) {
	up := &fakeUpstream{attendance: "absent"}
	s := newService(t, up, Options{})
	err := s.AssignTeachers(context.Background(), "u1", "s1", model.TeacherAssignment{Writing: model.Teacher{Email: "omar@example.com"}})
	if codeOf(err) != ErrAttendanceAbsent {
		t.Fatalf("expected attendance_absent, got %v", err)
	}
	if up.count("PUT /api/v1/admin/users/u1/schedules/s1/teacher") != 0 {
		t.Fatalf("absent candidate must not be assigned")
	}
}

func TestAssignTeachersValidatesEmail(t *testing.T) {
	s := newService(t, &fakeUpstream{}, Options{})
	err := s.AssignTeachers(context.Background(), "u1", "s1", model.TeacherAssignment{Writing: model.Teacher{Email: "not-an-email"}})
	if codeOf(err) != ErrValidationFailed {
		t.Fatalf("expected validation_failed, got %v", err)
	}
}

type memoryLog struct {
	mu   sync.Mutex
	rows []db.Dispatch
}

func (m *memoryLog) InsertDispatch(_ context.Context, arg db.InsertDispatchParams) (db.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := db.Dispatch{UserID: arg.UserID, ScheduleID: arg.ScheduleID, Filename: arg.Filename, Channel: arg.Channel, Recipient: arg.Recipient, SentBy: arg.SentBy, CreatedAt: arg.CreatedAt}
	m.rows = append(m.rows, d)
	return d, nil
}

func (m *memoryLog) ListDispatches(_ context.Context, userID, scheduleID string, _ int) ([]db.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Dispatch(nil), m.rows...), nil
}

func TestSendTRFMarksFlagAndLogs(t *testing.T) {
	up := &fakeUpstream{attendance: "present"}
	flags := sentflags.NewMemoryStore()
	log := &memoryLog{}
	s := newService(t, up, Options{Flags: flags, Dispatches: log, CentreName: "Dhaka Centre"})
	out, err := s.SendTRF(context.Background(), &auth.Claims{Email: "admin@example.com", Role: auth.RoleAdmin}, "u1", "s1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Filename != "IELTS_TRF_Ayesha.pdf" || out.Channel != mail.ChannelBackend || out.SentTo != "ayesha@example.com" {
		t.Fatalf("unexpected dispatch %+v", out)
	}
	if sent, _ := flags.IsSent(context.Background(), sentflags.TRFEmail, sentflags.TRFKey("u1", "s1")); !sent {
		t.Fatalf("flag should be set after delivery")
	}
	list, _ := s.TRFDispatches(context.Background(), "u1", "s1")
	if len(list) != 1 || list[0].SentBy != "admin@example.com" {
		t.Fatalf("dispatch should be logged, got %+v", list)
	}
}

func TestSendTRFFailureLeavesNoFlag(t *testing.T) {
	up := &fakeUpstream{attendance: "present", failTRF: true}
	flags := sentflags.NewMemoryStore()
	log := &memoryLog{}
	s := newService(t, up, Options{Flags: flags, Dispatches: log})
	if _, err := s.SendTRF(context.Background(), nil, "u1", "s1"); codeOf(err) != ErrUpstream {
		t.Fatalf("expected upstream_error, got %v", err)
	}
	if sent, _ := flags.IsSent(context.Background(), sentflags.TRFEmail, sentflags.TRFKey("u1", "s1")); sent {
		t.Fatalf("failed delivery must not set the flag")
	}
	if len(log.rows) != 0 {
		t.Fatalf("failed delivery must not be logged")
	}
}

func TestRenderTRFRejectsAbsent(t *testing.T) {
	s := newService(t, &fakeUpstream{attendance: "absent"}, Options{})
	if _, err := s.RenderTRF(context.Background(), "u1", "s1"); codeOf(err) != ErrAttendanceAbsent {
		t.Fatalf("expected attendance_absent, got %v", err)
	}
}

func TestRenderTRF(t *testing.T) {
	s := newService(t, &fakeUpstream{attendance: "present"}, Options{})
	doc, err := s.RenderTRF(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.Pages != 2 || len(doc.PDF) == 0 {
		t.Fatalf("expected a two page pdf, got %d pages", doc.Pages)
	}
}

func TestSendReminderOnce(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	if err := s.SendReminder(context.Background(), "s1", false); err != nil {
		t.Fatalf("first reminder: %v", err)
	}
	if err := s.SendReminder(context.Background(), "s1", false); codeOf(err) != ErrReminderAlreadySent {
		t.Fatalf("expected reminder_already_sent, got %v", err)
	}
	if err := s.SendReminder(context.Background(), "s1", true); err != nil {
		t.Fatalf("forced reminder: %v", err)
	}
	if up.count("POST /api/v1/send-reminder") != 2 {
		t.Fatalf("expected 2 reminder calls, got %d", up.count("POST /api/v1/send-reminder"))
	}
}

func TestBookSlot(t *testing.T) {
	s := newService(t, &fakeUpstream{}, Options{})
	booking, err := s.BookSlot(context.Background(), model.BookSlotRequest{UserID: "u1", ScheduleID: "s1", SlotID: "a"})
	if err != nil || booking.ID != "b9" {
		t.Fatalf("expected booking b9, got %+v %v", booking, err)
	}
	if _, err := s.BookSlot(context.Background(), model.BookSlotRequest{UserID: "u1", ScheduleID: "s1", SlotID: "full"}); codeOf(err) != ErrSlotFull {
		t.Fatalf("expected slot_full, got %v", err)
	}
	if _, err := s.BookSlot(context.Background(), model.BookSlotRequest{UserID: "u1", ScheduleID: "nope", SlotID: "a"}); codeOf(err) != ErrScheduleNotFound {
		t.Fatalf("expected schedule_not_found, got %v", err)
	}
	if _, err := s.BookSlot(context.Background(), model.BookSlotRequest{UserID: "u1"}); codeOf(err) != ErrValidationFailed {
		t.Fatalf("expected validation_failed, got %v", err)
	}
}

func TestSetUserStatus(t *testing.T) {
	up := &fakeUpstream{}
	s := newService(t, up, Options{})
	if err := s.SetUserStatus(context.Background(), "u1", "Checked"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(up.bodies["PUT /api/v1/admin/users/u1/status"], `"checked"`) {
		t.Fatalf("status should be normalized, got %q", up.bodies["PUT /api/v1/admin/users/u1/status"])
	}
	if err := s.SetUserStatus(context.Background(), "u1", "archived"); codeOf(err) != ErrInvalidStatus {
		t.Fatalf("expected invalid_status, got %v", err)
	}
}

func TestAdminSectionPrefill(t *testing.T) {
	up := &fakeUpstream{status: `{"listening":true,"reading":true,"writing":true,"speaking":true,"marks":{"listening":7,"reading":6.5,"writing":6,"speaking":7}}`}
	s := newService(t, up, Options{})
	sec, err := s.AdminSection(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sec.OverallBand == nil || *sec.OverallBand != 6.5 || sec.ProficiencyLevel != "B2" {
		t.Fatalf("expected 6.5/B2 prefill, got %+v", sec)
	}
	saved, err := s.SaveAdminSection(context.Background(), model.AdminSection{UserID: "u1", ScheduleID: "s1", ProficiencyLevel: "c1"})
	if err != nil || saved.ProficiencyLevel != "C1" {
		t.Fatalf("unexpected save result %+v %v", saved, err)
	}
	if up.count("POST /api/v1/admin/save-admin-section") != 1 {
		t.Fatalf("new section should be created with POST, got %v", up.requests)
	}
}
