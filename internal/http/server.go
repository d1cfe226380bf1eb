package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/hydrate"
	"mockdesk/dashboard/internal/operations"
)

type Server struct {
	backend  *backend.Client
	ops      *operations.Service
	hydrator *hydrate.Hydrator
	verifier *auth.Verifier
	log      *zap.Logger
	location *time.Location
	now      func() time.Time
}

type Options struct {
	Backend    *backend.Client
	Operations *operations.Service
	Hydrator   *hydrate.Hydrator
	Verifier   *auth.Verifier
	Logger     *zap.Logger
	Location   *time.Location
}

func NewServer(opts Options) (*Server, error) {
	if opts.Backend == nil || opts.Operations == nil || opts.Verifier == nil {
		return nil, errors.New("backend, operations and verifier are required")
	}
	s := &Server{
		backend:  opts.Backend,
		ops:      opts.Operations,
		hydrator: opts.Hydrator,
		verifier: opts.Verifier,
		log:      opts.Logger,
		location: opts.Location,
		now:      time.Now,
	}
	if s.hydrator == nil {
		s.hydrator = hydrate.New(opts.Backend, nil, nil, nil, opts.Logger)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s, nil
}

const (
	roleAdmin   = auth.RoleAdmin
	roleBDM     = auth.RoleBDM
	roleTeacher = auth.RoleTeacher
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(requireRole(roleBDM, roleTeacher)).Get("/bookings", s.handleListBookings)
		r.With(requireRole(roleBDM)).Get("/bookings/report.pdf", s.handleBookingReport)
		r.With(requireRole(roleBDM)).Get("/bookings/export.xlsx", s.handleBookingExport)
		r.With(requireRole(roleBDM, roleTeacher)).Get("/bookings/annotations", s.handleBookingAnnotations)
		r.With(requireRole(roleAdmin)).Put("/bookings/{scheduleId}/attendance", s.handleUpdateAttendance)
		r.With(requireRole(roleAdmin)).Post("/attendance/bulk", s.handleBulkAttendance)

		r.With(requireRole(roleBDM)).Get("/users", s.handleListUsers)
		r.With(requireRole(roleAdmin)).Put("/users/{userId}/status", s.handleSetUserStatus)
		r.With(requireRole(roleAdmin)).Put("/users/{userId}/block", s.handleSetUserBlocked)
		r.With(requireRole(roleAdmin)).Post("/users/{userId}/mocks", s.handleAddMock)
		r.With(requireRole(roleAdmin)).Put("/users/{userId}/mocks/{mockId}", s.handleUpdateMock)
		r.With(requireRole(roleAdmin)).Delete("/users/{userId}/mocks/{mockId}", s.handleDeleteMock)
		r.With(requireRole(roleBDM)).Get("/users/{userId}/attendance", s.handleUserAttendance)

		r.With(requireRole(roleBDM, roleTeacher)).Get("/schedules", s.handleListSchedules)
		r.With(requireRole(roleAdmin)).Delete("/schedules/{scheduleId}", s.handleDeleteSchedule)
		r.With(requireRole(roleAdmin)).Post("/schedules/{scheduleId}/reminder", s.handleSendReminder)
		r.With(requireRole(roleBDM)).Post("/book-slot", s.handleBookSlot)

		r.With(requireRole(roleAdmin)).Put("/assignments/{userId}/{scheduleId}", s.handleAssignTeachers)
		r.With(requireRole(roleTeacher)).Get("/feedback/{userId}/{scheduleId}", s.handleGetFeedback)
		r.With(requireRole(roleTeacher)).Post("/feedback/{userId}/{scheduleId}", s.handleSaveFeedback)
		r.With(requireRole(roleAdmin)).Get("/admin-section/{userId}/{scheduleId}", s.handleGetAdminSection)
		r.With(requireRole(roleAdmin)).Put("/admin-section/{userId}/{scheduleId}", s.handleSaveAdminSection)

		r.With(requireRole(roleAdmin)).Get("/trf/{userId}/{scheduleId}/pdf", s.handleTRFPDF)
		r.With(requireRole(roleAdmin)).Post("/trf/{userId}/{scheduleId}/email", s.handleSendTRF)
		r.With(requireRole(roleAdmin)).Get("/trf/{userId}/{scheduleId}/dispatches", s.handleTRFDispatches)
	})

	return r
}

type claimsKey struct{}

// authMiddleware verifies the bearer token and forwards it to the booking backend.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := s.verifier.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = backend.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole admits the listed roles. Admins always pass.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if !claims.HasRole(roles...) {
				writeError(w, http.StatusForbidden, operations.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// writeOperationError maps operation error codes onto HTTP statuses.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	var opErr *operations.Error
	if !errors.As(err, &opErr) {
		s.log.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	status := http.StatusInternalServerError
	switch opErr.Code {
	case operations.ErrValidationFailed, operations.ErrInvalidSegment, operations.ErrInvalidAttendance,
		operations.ErrInvalidStatus, operations.ErrMissingRecipient:
		status = http.StatusBadRequest
	case operations.ErrForbidden, operations.ErrNotAssignedTeacher:
		status = http.StatusForbidden
	case operations.ErrBookingNotFound, operations.ErrScheduleNotFound, operations.ErrSlotNotFound:
		status = http.StatusNotFound
	case operations.ErrSegmentLocked, operations.ErrAttendanceAbsent, operations.ErrSlotFull,
		operations.ErrReminderAlreadySent:
		status = http.StatusConflict
	case operations.ErrUpstream:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Warn("operation failed", zap.String("code", opErr.Code), zap.Error(opErr.Err))
	}
	if len(opErr.Fields) > 0 {
		writeJSON(w, status, map[string]interface{}{"error": opErr.Code, "fields": opErr.Fields})
		return
	}
	writeError(w, status, opErr.Code)
}

// writeUpstreamError reports a failed backend read as 502.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	s.log.Warn("backend read failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, operations.ErrUpstream)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
