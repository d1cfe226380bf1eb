package operations

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/model"
)

type FeedbackInput struct {
	UserID     string      `json:"-"`
	ScheduleID string      `json:"-"`
	Segment    string      `json:"segment"`
	Marks      model.Marks `json:"marks"`
	Feedback   string      `json:"feedback" validate:"max=4000"`
}

// FeedbackView is the feedback page for one candidate and schedule.
type FeedbackView struct {
	model.FeedbackRecord
	Teachers    model.TeacherAssignment `json:"teachers"`
	OverallBand *float64                `json:"overallBand,omitempty"`
	CEFRLevel   string                  `json:"cefrLevel,omitempty"`
	Editable    []model.Segment         `json:"editable"`
}

// authorizeSegment lets admins through and requires anyone else to be the teacher
// assigned to seg, matched by token email.
func (s *Service) authorizeSegment(ctx context.Context, claims *auth.Claims, userID, scheduleID string, seg model.Segment) error {
	if claims == nil {
		return &Error{Code: ErrForbidden}
	}
	if claims.IsAdmin() {
		return nil
	}
	if !claims.HasRole(auth.RoleTeacher) {
		return &Error{Code: ErrForbidden}
	}
	assignment, err := s.backend.AssignedTeachers(ctx, userID, scheduleID)
	if err != nil {
		return upstream(err)
	}
	if !auth.SameEmail(claims.Email, assignment.For(seg).Email) {
		return &Error{Code: ErrNotAssignedTeacher}
	}
	return nil
}

// SaveFeedback stores one segment's marks and feedback and locks the segment. The
// caller must be an admin or the teacher assigned to the segment; a mismatch is
// rejected before anything is written upstream.
func (s *Service) SaveFeedback(ctx context.Context, claims *auth.Claims, in FeedbackInput) (model.FeedbackStatus, error) {
	seg, err := model.ParseSegment(in.Segment)
	if err != nil {
		return model.FeedbackStatus{}, &Error{Code: ErrInvalidSegment}
	}
	if err := s.authorizeSegment(ctx, claims, in.UserID, in.ScheduleID, seg); err != nil {
		return model.FeedbackStatus{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return model.FeedbackStatus{}, invalid(err)
	}
	if in.Marks.Band(seg) == nil {
		return model.FeedbackStatus{}, &Error{Code: ErrValidationFailed, Fields: map[string]string{"marks." + string(seg): "required"}}
	}

	rec, err := s.backend.FeedbackStatus(ctx, in.UserID, in.ScheduleID)
	if err != nil {
		return model.FeedbackStatus{}, upstream(err)
	}
	if rec.Saved(seg) {
		return rec.FeedbackStatus, &Error{Code: ErrSegmentLocked}
	}

	save := backend.FeedbackSave{
		UserID:     in.UserID,
		ScheduleID: in.ScheduleID,
		Segment:    seg,
		Marks:      rec.Marks.Merge(seg, in.Marks),
		Feedback:   rec.Feedback.With(seg, strings.TrimSpace(in.Feedback)),
	}
	if err := s.backend.SaveFeedback(ctx, save); err != nil {
		return model.FeedbackStatus{}, upstream(err)
	}
	status := rec.FeedbackStatus.With(seg)
	if err := s.backend.UpdateFeedbackStatus(ctx, in.UserID, in.ScheduleID, status); err != nil {
		return model.FeedbackStatus{}, upstream(err)
	}
	s.log.Info("feedback saved",
		zap.String("user_id", in.UserID),
		zap.String("schedule_id", in.ScheduleID),
		zap.String("segment", string(seg)),
		zap.String("by", claims.Email),
	)
	return status, nil
}

// Feedback returns the feedback page. Teachers only see it when assigned to at
// least one segment, and may only edit their own unsaved segments.
func (s *Service) Feedback(ctx context.Context, claims *auth.Claims, userID, scheduleID string) (FeedbackView, error) {
	if claims == nil {
		return FeedbackView{}, &Error{Code: ErrForbidden}
	}
	teachers, err := s.backend.AssignedTeachers(ctx, userID, scheduleID)
	if err != nil {
		return FeedbackView{}, upstream(err)
	}
	var mine []model.Segment
	for _, seg := range model.Segments {
		if claims.IsAdmin() || auth.SameEmail(claims.Email, teachers.For(seg).Email) {
			mine = append(mine, seg)
		}
	}
	if len(mine) == 0 {
		return FeedbackView{}, &Error{Code: ErrNotAssignedTeacher}
	}
	rec, err := s.backend.FeedbackStatus(ctx, userID, scheduleID)
	if err != nil {
		return FeedbackView{}, upstream(err)
	}
	view := FeedbackView{FeedbackRecord: rec, Teachers: teachers, Editable: []model.Segment{}}
	for _, seg := range mine {
		if !rec.Saved(seg) {
			view.Editable = append(view.Editable, seg)
		}
	}
	if overall, ok := rec.Marks.Overall(); ok {
		view.OverallBand = &overall
		view.CEFRLevel = model.CEFRLevel(overall)
	}
	return view, nil
}

// AdminSection returns the stored admin section, prefilled from the marks when the
// overall band or CEFR level are not set yet.
func (s *Service) AdminSection(ctx context.Context, userID, scheduleID string) (model.AdminSection, error) {
	sec, _, err := s.backend.AdminSection(ctx, userID, scheduleID)
	if err != nil {
		return sec, upstream(err)
	}
	return s.prefillAdmin(ctx, sec)
}

func (s *Service) prefillAdmin(ctx context.Context, sec model.AdminSection) (model.AdminSection, error) {
	if sec.OverallBand == nil {
		rec, err := s.backend.FeedbackStatus(ctx, sec.UserID, sec.ScheduleID)
		if err != nil {
			return sec, upstream(err)
		}
		if overall, ok := rec.Marks.Overall(); ok {
			sec.OverallBand = &overall
		}
	}
	if sec.ProficiencyLevel == "" && sec.OverallBand != nil {
		sec.ProficiencyLevel = model.CEFRLevel(*sec.OverallBand)
	}
	return sec, nil
}

func (s *Service) SaveAdminSection(ctx context.Context, sec model.AdminSection) (model.AdminSection, error) {
	sec.ProficiencyLevel = strings.ToUpper(strings.TrimSpace(sec.ProficiencyLevel))
	if err := s.validate.Struct(sec); err != nil {
		return sec, invalid(err)
	}
	_, exists, err := s.backend.AdminSection(ctx, sec.UserID, sec.ScheduleID)
	if err != nil {
		return sec, upstream(err)
	}
	sec, err = s.prefillAdmin(ctx, sec)
	if err != nil {
		return sec, err
	}
	if err := s.backend.SaveAdminSection(ctx, sec, exists); err != nil {
		return sec, upstream(err)
	}
	return sec, nil
}
