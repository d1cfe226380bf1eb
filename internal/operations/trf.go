package operations

import (
	"bytes"
	"context"
	"strings"

	"go.uber.org/zap"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/db"
	"mockdesk/dashboard/internal/mail"
	"mockdesk/dashboard/internal/metrics"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/report"
	"mockdesk/dashboard/internal/sentflags"
)

// TRFDocument is a rendered Test Report Form.
type TRFDocument struct {
	Filename string
	PDF      []byte
	Pages    int
	User     model.User
	Booking  model.Booking
}

// TRFData gathers everything the form prints. Absent candidates have no TRF.
func (s *Service) TRFData(ctx context.Context, userID, scheduleID string) (report.TRFData, error) {
	booking, err := s.booking(ctx, userID, scheduleID)
	if err != nil {
		return report.TRFData{}, err
	}
	if booking.AttendanceStatus() == model.AttendanceAbsent {
		return report.TRFData{}, &Error{Code: ErrAttendanceAbsent}
	}
	user, ok, err := s.backend.FindUser(ctx, userID)
	if err != nil {
		return report.TRFData{}, upstream(err)
	}
	if !ok {
		if booking.User != nil {
			user = *booking.User
		} else {
			user = model.User{ID: userID, Name: booking.CandidateName(), Email: booking.CandidateEmail(), ContactNo: booking.CandidatePhone()}
		}
	}
	rec, err := s.backend.FeedbackStatus(ctx, userID, scheduleID)
	if err != nil {
		return report.TRFData{}, upstream(err)
	}
	admin, _, err := s.backend.AdminSection(ctx, userID, scheduleID)
	if err != nil {
		return report.TRFData{}, upstream(err)
	}
	teachers, err := s.backend.AssignedTeachers(ctx, userID, scheduleID)
	if err != nil {
		return report.TRFData{}, upstream(err)
	}
	var schedule model.Schedule
	if schedules, err := s.backend.ListSchedules(ctx); err == nil {
		for _, sc := range schedules {
			if sc.ID == scheduleID {
				schedule = sc
				break
			}
		}
	} else {
		s.log.Warn("schedule lookup for trf failed", zap.Error(err))
	}
	return report.TRFData{
		CentreName: s.centreName,
		User:       user,
		Booking:    booking,
		Schedule:   schedule,
		Marks:      rec.Marks,
		Feedback:   rec.Feedback,
		Admin:      admin,
		Teachers:   teachers,
	}, nil
}

// RenderTRF builds the two-page PDF in memory.
func (s *Service) RenderTRF(ctx context.Context, userID, scheduleID string) (TRFDocument, error) {
	data, err := s.TRFData(ctx, userID, scheduleID)
	if err != nil {
		return TRFDocument{}, err
	}
	var buf bytes.Buffer
	pages, err := report.RenderTRF(&buf, data, report.TRFOptions{Logo: s.logo, Logger: s.log})
	if err != nil {
		s.log.Error("trf render failed", zap.String("user_id", userID), zap.String("schedule_id", scheduleID), zap.Error(err))
		return TRFDocument{}, &Error{Code: ErrTRFRenderFailed, Err: err}
	}
	return TRFDocument{
		Filename: report.TRFFilename(data.User),
		PDF:      buf.Bytes(),
		Pages:    pages,
		User:     data.User,
		Booking:  data.Booking,
	}, nil
}

type TRFDispatch struct {
	Filename string       `json:"filename"`
	Channel  string       `json:"channel"`
	SentTo   string       `json:"sentTo"`
	Logged   *db.Dispatch `json:"dispatch,omitempty"`
}

// SendTRF renders the TRF and emails it. The sent flag and dispatch log are only
// written once delivery succeeded.
func (s *Service) SendTRF(ctx context.Context, claims *auth.Claims, userID, scheduleID string) (TRFDispatch, error) {
	doc, err := s.RenderTRF(ctx, userID, scheduleID)
	if err != nil {
		return TRFDispatch{}, err
	}
	to := strings.TrimSpace(doc.User.Email)
	if to == "" {
		to = doc.Booking.CandidateEmail()
	}
	if s.sender.Channel() != mail.ChannelBackend && to == "" {
		return TRFDispatch{}, &Error{Code: ErrMissingRecipient}
	}
	msg := mail.TRFMessage{
		UserID:     userID,
		ScheduleID: scheduleID,
		ToName:     doc.User.Name,
		ToEmail:    to,
		TestName:   doc.Booking.TestName,
		Filename:   doc.Filename,
		PDF:        doc.PDF,
	}
	channel := s.sender.Channel()
	if err := s.sender.SendTRF(ctx, msg); err != nil {
		metrics.TRFDispatches.WithLabelValues(channel, "error").Inc()
		return TRFDispatch{}, upstream(err)
	}
	metrics.TRFDispatches.WithLabelValues(channel, "ok").Inc()

	if err := s.flags.MarkSent(ctx, sentflags.TRFEmail, sentflags.TRFKey(userID, scheduleID)); err != nil {
		s.log.Warn("trf sent flag not stored", zap.Error(err))
	}
	out := TRFDispatch{Filename: doc.Filename, Channel: channel, SentTo: to}
	if s.dispatches != nil {
		sentBy := ""
		if claims != nil {
			sentBy = claims.Email
		}
		d, err := s.dispatches.InsertDispatch(ctx, db.InsertDispatchParams{
			UserID:     userID,
			ScheduleID: scheduleID,
			Filename:   doc.Filename,
			Channel:    channel,
			Recipient:  to,
			SentBy:     sentBy,
			CreatedAt:  s.now().UTC(),
		})
		if err != nil {
			s.log.Warn("trf dispatch not logged", zap.Error(err))
		} else {
			out.Logged = &d
		}
	}
	s.log.Info("trf sent", zap.String("user_id", userID), zap.String("schedule_id", scheduleID), zap.String("channel", channel))
	return out, nil
}

func (s *Service) TRFDispatches(ctx context.Context, userID, scheduleID string) ([]db.Dispatch, error) {
	if s.dispatches == nil {
		return []db.Dispatch{}, nil
	}
	list, err := s.dispatches.ListDispatches(ctx, userID, scheduleID, 50)
	if err != nil {
		return nil, &Error{Code: ErrServerError, Err: err}
	}
	if list == nil {
		list = []db.Dispatch{}
	}
	return list, nil
}
