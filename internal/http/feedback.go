package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/operations"
)

func pairParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "userId"), chi.URLParam(r, "scheduleId")
}

func (s *Server) handleAssignTeachers(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	var req model.TeacherAssignment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.ops.AssignTeachers(r.Context(), userID, scheduleID, req); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teachers": req.Labels()})
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	view, err := s.ops.Feedback(r.Context(), claimsFromContext(r.Context()), userID, scheduleID)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSaveFeedback(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	var req operations.FeedbackInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.UserID, req.ScheduleID = userID, scheduleID
	status, err := s.ops.SaveFeedback(r.Context(), claimsFromContext(r.Context()), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segment":           req.Segment,
		"feedbackStatus":    status,
		"completedSegments": status.CompletedCount(),
		"feedbackComplete":  status.Complete(),
	})
}

func (s *Server) handleGetAdminSection(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	sec, err := s.ops.AdminSection(r.Context(), userID, scheduleID)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	sec.UserID, sec.ScheduleID = userID, scheduleID
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleSaveAdminSection(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	var req model.AdminSection
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.UserID, req.ScheduleID = userID, scheduleID
	sec, err := s.ops.SaveAdminSection(r.Context(), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleTRFPDF(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	doc, err := s.ops.RenderTRF(r.Context(), userID, scheduleID)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeFile(w, "application/pdf", doc.Filename, doc.PDF)
}

func (s *Server) handleSendTRF(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	sent, err := s.ops.SendTRF(r.Context(), claimsFromContext(r.Context()), userID, scheduleID)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (s *Server) handleTRFDispatches(w http.ResponseWriter, r *http.Request) {
	userID, scheduleID := pairParams(r)
	list, err := s.ops.TRFDispatches(r.Context(), userID, scheduleID)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}
