package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/debounce"
	"mockdesk/dashboard/internal/listing"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/operations"
	"mockdesk/dashboard/internal/report"
)

type bookingRow struct {
	model.Booking
	Actions model.RowActions `json:"actions"`
}

func bookingScope(r *http.Request) backend.BookingScope {
	home, _ := strconv.ParseBool(r.URL.Query().Get("home"))
	return backend.BookingScope{ScheduleID: r.URL.Query().Get("scheduleId"), Home: home}
}

func (s *Server) bookingQuery(r *http.Request) listing.Query {
	q := listing.ParseQuery(r.URL.Query(), s.location, "date")
	q.Now = s.now()
	return q
}

// filteredBookings returns every booking matching the query, sorted, without paging.
func (s *Server) filteredBookings(r *http.Request) ([]model.Booking, error) {
	rows, err := s.backend.ListBookings(r.Context(), bookingScope(r))
	if err != nil {
		return nil, err
	}
	q := s.bookingQuery(r)
	rows = listing.Filter(rows, q)
	listing.Sort(rows, q)
	return rows, nil
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.backend.ListBookings(r.Context(), bookingScope(r))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	page := listing.Apply(rows, s.bookingQuery(r))
	items := make([]bookingRow, len(page.Items))
	for i, b := range page.Items {
		items[i] = bookingRow{Booking: b, Actions: b.Actions()}
	}
	writeJSON(w, http.StatusOK, listing.Page[bookingRow]{Items: items, Meta: page.Meta})
}

// handleBookingAnnotations hydrates the rows of the requested page. Requests from the
// same user for the same view are debounced and only the newest one gets results.
func (s *Server) handleBookingAnnotations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.backend.ListBookings(r.Context(), bookingScope(r))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	page := listing.Apply(rows, s.bookingQuery(r))

	viewKey := r.URL.Path
	if claims := claimsFromContext(r.Context()); claims != nil {
		viewKey = claims.UserID + ":" + viewKey + ":" + r.URL.Query().Get("scheduleId")
	}
	annotations, err := s.hydrator.AnnotateDebounced(r.Context(), viewKey, page.Items)
	if err != nil {
		if errors.Is(err, debounce.ErrSuperseded) {
			writeError(w, http.StatusConflict, "superseded")
			return
		}
		writeError(w, http.StatusRequestTimeout, "request_cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": annotations, "meta": page.Meta})
}

func (s *Server) reportHeader(rows []model.Booking, scheduleID string) report.TableReport {
	rep := report.TableReport{
		Title:       "Booking Requests",
		GeneratedAt: s.now(),
		Location:    s.location,
		Rows:        rows,
	}
	if scheduleID != "" && len(rows) > 0 {
		first := rows[0]
		rep.TestName = first.TestName
		rep.Date = listing.CivilDate(first.Date, s.location)
		rep.Time = report.TimeRange(first.StartTime, first.EndTime)
	}
	return rep
}

func (s *Server) handleBookingReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredBookings(r)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := report.RenderBookingReport(&buf, s.reportHeader(rows, bookingScope(r).ScheduleID)); err != nil {
		s.writeOperationError(w, &operations.Error{Code: operations.ErrServerError, Err: err})
		return
	}
	writeFile(w, "application/pdf", report.ReportFilename(s.now(), s.location, "pdf"), buf.Bytes())
}

func (s *Server) handleBookingExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredBookings(r)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteBookingWorkbook(&buf, rows, s.location); err != nil {
		s.writeOperationError(w, &operations.Error{Code: operations.ErrServerError, Err: err})
		return
	}
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		report.ReportFilename(s.now(), s.location, "xlsx"), buf.Bytes())
}

type attendanceRequest struct {
	UserID     string `json:"userId"`
	BookingID  string `json:"bookingId"`
	Attendance string `json:"attendance"`
}

func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	scheduleID := chi.URLParam(r, "scheduleId")
	if scheduleID == "home" {
		scheduleID = ""
	}
	result, err := s.ops.UpdateAttendance(r.Context(), model.AttendanceUpdate{
		UserID:     req.UserID,
		ScheduleID: scheduleID,
		BookingID:  req.BookingID,
		Attendance: model.AttendanceStatus(req.Attendance),
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type bulkAttendanceRequest struct {
	Updates []model.AttendanceUpdate `json:"updates"`
}

func (s *Server) handleBulkAttendance(w http.ResponseWriter, r *http.Request) {
	var req bulkAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.ops.BulkAttendance(r.Context(), req.Updates); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(req.Updates)})
}
