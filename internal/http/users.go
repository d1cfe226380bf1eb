package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/listing"
	"mockdesk/dashboard/internal/model"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	filter := backend.UserFilter{Status: strings.TrimSpace(values.Get("status"))}
	switch strings.ToLower(values.Get("blocked")) {
	case "blocked", "true":
		blocked := true
		filter.IsDeleted = &blocked
	case "unblocked", "false":
		blocked := false
		filter.IsDeleted = &blocked
	}
	users, err := s.backend.ListUsers(r.Context(), filter)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	q := listing.ParseQuery(values, s.location, "name")
	q.Now = s.now()
	// blocked was already applied upstream and uses a different vocabulary there.
	delete(q.Filters, "blocked")
	writeJSON(w, http.StatusOK, listing.Apply(users, q))
}

func (s *Server) handleUserAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := s.backend.UserAttendance(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": records})
}

type userStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req userStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.ops.SetUserStatus(r.Context(), chi.URLParam(r, "userId"), req.Status); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": strings.ToLower(strings.TrimSpace(req.Status))})
}

type userBlockRequest struct {
	Blocked bool `json:"blocked"`
}

func (s *Server) handleSetUserBlocked(w http.ResponseWriter, r *http.Request) {
	var req userBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.ops.SetUserBlocked(r.Context(), chi.URLParam(r, "userId"), req.Blocked); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"blocked": req.Blocked})
}

func (s *Server) handleAddMock(w http.ResponseWriter, r *http.Request) {
	var entry model.MockEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.ops.AddMock(r.Context(), chi.URLParam(r, "userId"), entry); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateMock(w http.ResponseWriter, r *http.Request) {
	var entry model.MockEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	entry.ID = chi.URLParam(r, "mockId")
	if err := s.ops.UpdateMock(r.Context(), chi.URLParam(r, "userId"), entry.ID, entry); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteMock(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.DeleteMock(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "mockId")); err != nil {
		s.writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.backend.ListSchedules(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	q := listing.ParseQuery(r.URL.Query(), s.location, "startDate")
	q.Now = s.now()
	writeJSON(w, http.StatusOK, listing.Apply(schedules, q))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.DeleteSchedule(r.Context(), chi.URLParam(r, "scheduleId")); err != nil {
		s.writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	scheduleID := chi.URLParam(r, "scheduleId")
	if err := s.ops.SendReminder(r.Context(), scheduleID, force); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scheduleId": scheduleID, "sent": true})
}

func (s *Server) handleBookSlot(w http.ResponseWriter, r *http.Request) {
	var req model.BookSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	booking, err := s.ops.BookSlot(r.Context(), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}
