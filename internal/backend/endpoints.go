package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"mockdesk/dashboard/internal/model"
)

const apiPrefix = "/api/v1"

// BookingScope selects which booking listing to read.
type BookingScope struct {
	ScheduleID string
	Home       bool
}

func (s BookingScope) path() string {
	switch {
	case s.ScheduleID != "":
		return apiPrefix + "/admin/bookings/by-schedule/" + url.PathEscape(s.ScheduleID)
	case s.Home:
		return apiPrefix + "/admin/bookings/home-with-users"
	default:
		return apiPrefix + "/admin/bookings"
	}
}

func pageQuery(page, limit int, extra url.Values) url.Values {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// listAll reads every page of a listing. A non-nil stop ends the walk after the page it
// accepts, for lookups that only need one record.
func listAll[T any](ctx context.Context, c *Client, name, path string, extra url.Values, key func(T) string, stop func([]T) bool) ([]T, error) {
	return FetchAll(ctx, func(ctx context.Context, page, limit int) ([]T, int, error) {
		data, err := c.get(ctx, name, path, pageQuery(page, limit, extra))
		if err != nil {
			return nil, 0, err
		}
		return decodeList[T](data)
	}, FetchOptions[T]{Limit: c.pageLimit, Key: key, Stop: stop})
}

func bookingKey(b model.Booking) string { return b.ID }

func userKey(u model.User) string { return u.ID }

func (c *Client) ListBookings(ctx context.Context, scope BookingScope) ([]model.Booking, error) {
	items, err := listAll(ctx, c, "bookings.list", scope.path(), nil, bookingKey, nil)
	return items, errors.Wrap(err, "list bookings")
}

type UserFilter struct {
	Status    string
	IsDeleted *bool
	Search    string
}

func (c *Client) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	extra := url.Values{}
	if f.Status != "" {
		extra.Set("status", f.Status)
	}
	if f.IsDeleted != nil {
		extra.Set("isDeleted", strconv.FormatBool(*f.IsDeleted))
	}
	if f.Search != "" {
		extra.Set("search", f.Search)
	}
	items, err := listAll(ctx, c, "users.list", apiPrefix+"/admin/users", extra, userKey, nil)
	return items, errors.Wrap(err, "list users")
}

func (c *Client) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	data, err := c.get(ctx, "schedules.list", apiPrefix+"/admin/get-schedules", nil)
	if err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	items, _, err := decodeList[model.Schedule](data)
	return items, err
}

func (c *Client) DeleteSchedule(ctx context.Context, scheduleID string) error {
	_, err := c.sendJSON(ctx, "schedules.delete", http.MethodDelete, apiPrefix+"/admin/delete-schedule/"+url.PathEscape(scheduleID), nil)
	if err != nil {
		return errors.Wrap(err, "delete schedule")
	}
	c.invalidate("/get-schedules", "/bookings")
	return nil
}

func pairPath(prefix, userID, scheduleID string) string {
	return apiPrefix + prefix + "/" + url.PathEscape(userID) + "/" + url.PathEscape(scheduleID)
}

// FeedbackStatus reads the saved segments, marks and feedback text. It always goes
// to the backend since it gates the segment lock.
func (c *Client) FeedbackStatus(ctx context.Context, userID, scheduleID string) (model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	data, err := c.getFresh(ctx, "feedback.status", pairPath("/admin/feedback-status", userID, scheduleID), nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return model.FeedbackRecord{UserID: userID, ScheduleID: scheduleID}, nil
		}
		return rec, errors.Wrap(err, "feedback status")
	}
	if err := decodeObject(data, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// CachedFeedbackStatus is FeedbackStatus through the response cache, for row annotations.
func (c *Client) CachedFeedbackStatus(ctx context.Context, userID, scheduleID string) (model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	data, err := c.get(ctx, "feedback.status", pairPath("/admin/feedback-status", userID, scheduleID), nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return model.FeedbackRecord{UserID: userID, ScheduleID: scheduleID}, nil
		}
		return rec, errors.Wrap(err, "feedback status")
	}
	return rec, decodeObject(data, &rec)
}

func (c *Client) UpdateFeedbackStatus(ctx context.Context, userID, scheduleID string, status model.FeedbackStatus) error {
	_, err := c.sendJSON(ctx, "feedback.status.update", http.MethodPut, pairPath("/admin/feedback-status", userID, scheduleID), status)
	if err != nil {
		return errors.Wrap(err, "update feedback status")
	}
	c.invalidate("/feedback-status/" + userID)
	return nil
}

type FeedbackSave struct {
	UserID     string         `json:"userId"`
	ScheduleID string         `json:"scheduleId"`
	Segment    model.Segment  `json:"segment"`
	Marks      model.Marks    `json:"marks"`
	Feedback   model.Feedback `json:"feedback"`
}

func (c *Client) SaveFeedback(ctx context.Context, save FeedbackSave) error {
	_, err := c.sendJSON(ctx, "feedback.save", http.MethodPost, apiPrefix+"/admin/save-feedback", save)
	if err != nil {
		return errors.Wrap(err, "save feedback")
	}
	c.invalidate("/feedback-status/" + save.UserID)
	return nil
}

// AdminSection returns the stored section and whether one exists.
func (c *Client) AdminSection(ctx context.Context, userID, scheduleID string) (model.AdminSection, bool, error) {
	var sec model.AdminSection
	data, err := c.getFresh(ctx, "admin_section.get", pairPath("/admin/get-admin-section", userID, scheduleID), nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return model.AdminSection{UserID: userID, ScheduleID: scheduleID}, false, nil
		}
		return sec, false, errors.Wrap(err, "admin section")
	}
	if err := decodeObject(data, &sec); err != nil {
		return sec, false, err
	}
	exists := sec.OverallBand != nil || sec.ProficiencyLevel != "" || sec.ResultPublishDate != "" || sec.AdminComments != "" || sec.AdminSignature != "" || sec.SchemeCode != ""
	sec.UserID, sec.ScheduleID = userID, scheduleID
	return sec, exists, nil
}

// SaveAdminSection creates the section or, when it already exists, updates it.
func (c *Client) SaveAdminSection(ctx context.Context, sec model.AdminSection, exists bool) error {
	var err error
	if exists {
		_, err = c.sendJSON(ctx, "admin_section.update", http.MethodPut, pairPath("/admin/get-admin-section", sec.UserID, sec.ScheduleID), sec)
	} else {
		_, err = c.sendJSON(ctx, "admin_section.save", http.MethodPost, apiPrefix+"/admin/save-admin-section", sec)
	}
	if err != nil {
		return errors.Wrap(err, "save admin section")
	}
	c.invalidate("/get-admin-section/" + sec.UserID)
	return nil
}

func (c *Client) AssignedTeachers(ctx context.Context, userID, scheduleID string) (model.TeacherAssignment, error) {
	var a model.TeacherAssignment
	data, err := c.get(ctx, "teachers.assigned", pairPath("/admin/assigned-teachers", userID, scheduleID), nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return a, nil
		}
		return a, errors.Wrap(err, "assigned teachers")
	}
	return a, decodeObject(data, &a)
}

func (c *Client) AssignTeachers(ctx context.Context, userID, scheduleID string, a model.TeacherAssignment) error {
	path := apiPrefix + "/admin/users/" + url.PathEscape(userID) + "/schedules/" + url.PathEscape(scheduleID) + "/teacher"
	if _, err := c.sendJSON(ctx, "teachers.assign", http.MethodPut, path, a); err != nil {
		return errors.Wrap(err, "assign teachers")
	}
	c.invalidate("/assigned-teachers/" + userID)
	return nil
}

type trfStatus struct {
	Sent      *bool `json:"sent"`
	EmailSent *bool `json:"emailSent"`
	IsSent    *bool `json:"isSent"`
}

func (c *Client) TRFEmailStatus(ctx context.Context, userID, scheduleID string) (bool, error) {
	data, err := c.get(ctx, "trf.status", pairPath("/admin/trf-email-status", userID, scheduleID), nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "trf email status")
	}
	var st trfStatus
	if err := decodeObject(data, &st); err != nil {
		return false, err
	}
	for _, v := range []*bool{st.Sent, st.EmailSent, st.IsSent} {
		if v != nil {
			return *v, nil
		}
	}
	return false, nil
}

// SendTRFEmail uploads the rendered TRF as multipart field "file"; the backend emails it.
func (c *Client) SendTRFEmail(ctx context.Context, userID, scheduleID, filename string, pdf []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "build trf upload")
	}
	if _, err := part.Write(pdf); err != nil {
		return errors.Wrap(err, "build trf upload")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "build trf upload")
	}
	u := c.endpointURL(pairPath("/admin/send-trf-email", userID, scheduleID), nil)
	if _, err := c.send(ctx, "trf.email", http.MethodPost, u, w.FormDataContentType(), &buf); err != nil {
		return errors.Wrap(err, "send trf email")
	}
	c.invalidate("/trf-email-status/" + userID)
	return nil
}

func (c *Client) UserAttendance(ctx context.Context, userID string) ([]model.AttendanceRecord, error) {
	data, err := c.get(ctx, "attendance.user", apiPrefix+"/user/attendance/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "user attendance")
	}
	items, _, err := decodeList[model.AttendanceRecord](data)
	return items, err
}

func (c *Client) BulkAttendance(ctx context.Context, updates []model.AttendanceUpdate) error {
	payload := map[string]any{"updates": updates}
	if _, err := c.sendJSON(ctx, "attendance.bulk", http.MethodPost, apiPrefix+"/user/attendance/bulk", payload); err != nil {
		return errors.Wrap(err, "bulk attendance")
	}
	c.invalidate("/bookings", "/user/attendance")
	return nil
}

// UpdateAttendance sets attendance on a schedule booking, or on the home booking
// when ScheduleID is empty.
func (c *Client) UpdateAttendance(ctx context.Context, u model.AttendanceUpdate) error {
	path := apiPrefix + "/user/bookings/home"
	if u.ScheduleID != "" {
		path = apiPrefix + "/user/bookings/" + url.PathEscape(u.ScheduleID)
	}
	if _, err := c.sendJSON(ctx, "bookings.attendance", http.MethodPut, path, u); err != nil {
		return errors.Wrap(err, "update attendance")
	}
	c.invalidate("/bookings", "/user/attendance/"+u.UserID)
	return nil
}

func (c *Client) BookSlot(ctx context.Context, req model.BookSlotRequest) (model.Booking, error) {
	var b model.Booking
	data, err := c.sendJSON(ctx, "bookings.book_slot", http.MethodPost, apiPrefix+"/user/book-slot", req)
	if err != nil {
		return b, errors.Wrap(err, "book slot")
	}
	c.invalidate("/bookings", "/get-schedules")
	if len(bytes.TrimSpace(data)) == 0 {
		return b, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err == nil {
		if raw, ok := env["booking"]; ok {
			data = raw
		}
	}
	return b, decodeObject(data, &b)
}

func (c *Client) SendReminder(ctx context.Context, scheduleID string) error {
	payload := map[string]string{"scheduleId": scheduleID}
	if _, err := c.sendJSON(ctx, "schedules.reminder", http.MethodPost, apiPrefix+"/send-reminder", payload); err != nil {
		return errors.Wrap(err, "send reminder")
	}
	return nil
}

func userPath(userID string, rest ...string) string {
	p := apiPrefix + "/admin/users/" + url.PathEscape(userID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

func (c *Client) SetUserStatus(ctx context.Context, userID, status string) error {
	if _, err := c.sendJSON(ctx, "users.status", http.MethodPut, userPath(userID, "status"), map[string]string{"status": status}); err != nil {
		return errors.Wrap(err, "set user status")
	}
	c.invalidate("/admin/users")
	return nil
}

func (c *Client) SetUserBlocked(ctx context.Context, userID string, blocked bool) error {
	if _, err := c.sendJSON(ctx, "users.block", http.MethodPut, userPath(userID, "block"), map[string]bool{"isDeleted": blocked}); err != nil {
		return errors.Wrap(err, "set user blocked")
	}
	c.invalidate("/admin/users")
	return nil
}

func (c *Client) AddMock(ctx context.Context, userID string, entry model.MockEntry) error {
	if _, err := c.sendJSON(ctx, "users.mocks.add", http.MethodPost, userPath(userID, "mocks"), entry); err != nil {
		return errors.Wrap(err, "add mock")
	}
	c.invalidate("/admin/users")
	return nil
}

func (c *Client) UpdateMock(ctx context.Context, userID, mockID string, entry model.MockEntry) error {
	if _, err := c.sendJSON(ctx, "users.mocks.update", http.MethodPut, userPath(userID, "mocks", mockID), entry); err != nil {
		return errors.Wrap(err, "update mock")
	}
	c.invalidate("/admin/users")
	return nil
}

func (c *Client) DeleteMock(ctx context.Context, userID, mockID string) error {
	if _, err := c.sendJSON(ctx, "users.mocks.delete", http.MethodDelete, userPath(userID, "mocks", mockID), nil); err != nil {
		return errors.Wrap(err, "delete mock")
	}
	c.invalidate("/admin/users")
	return nil
}

// FindBooking locates a user's booking for a schedule in the schedule listing. Paging
// stops at the first page holding the booking.
func (c *Client) FindBooking(ctx context.Context, userID, scheduleID string) (model.Booking, bool, error) {
	match := func(b model.Booking) bool { return b.UserID.Contains(userID) }
	bookings, err := listAll(ctx, c, "bookings.list", BookingScope{ScheduleID: scheduleID}.path(), nil, bookingKey, anyOf(match))
	if err != nil {
		return model.Booking{}, false, errors.Wrap(err, "list bookings")
	}
	for _, b := range bookings {
		if match(b) {
			return b, true, nil
		}
	}
	return model.Booking{}, false, nil
}

// FindUser looks a user up by id in the admin user listing. Paging stops at the first
// page holding the user.
func (c *Client) FindUser(ctx context.Context, userID string) (model.User, bool, error) {
	match := func(u model.User) bool { return strings.EqualFold(u.ID, userID) }
	users, err := listAll(ctx, c, "users.list", apiPrefix+"/admin/users", nil, userKey, anyOf(match))
	if err != nil {
		return model.User{}, false, errors.Wrap(err, "list users")
	}
	for _, u := range users {
		if match(u) {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

func anyOf[T any](match func(T) bool) func([]T) bool {
	return func(page []T) bool {
		for _, item := range page {
			if match(item) {
				return true
			}
		}
		return false
	}
}
