package operations

import (
	"context"

	"mockdesk/dashboard/internal/model"
)

// AttendanceResult is the stored attendance value and the row actions it allows.
type AttendanceResult struct {
	Attendance model.AttendanceStatus `json:"attendance"`
	Actions    model.RowActions       `json:"actions"`
}

// UpdateAttendance records attendance for one booking and returns the normalized
// status with the row actions that follow from it, so the caller can disable View TRF
// and teacher assignment in the same response.
func (s *Service) UpdateAttendance(ctx context.Context, upd model.AttendanceUpdate) (AttendanceResult, error) {
	status, err := model.ParseAttendance(string(upd.Attendance))
	if err != nil {
		return AttendanceResult{}, &Error{Code: ErrInvalidAttendance}
	}
	upd.Attendance = status
	if err := s.validate.Struct(upd); err != nil {
		return AttendanceResult{}, invalid(err)
	}
	if err := s.backend.UpdateAttendance(ctx, upd); err != nil {
		return AttendanceResult{}, upstream(err)
	}
	return AttendanceResult{Attendance: status, Actions: model.Booking{Attendance: status}.Actions()}, nil
}

func (s *Service) BulkAttendance(ctx context.Context, updates []model.AttendanceUpdate) error {
	if len(updates) == 0 {
		return &Error{Code: ErrValidationFailed, Fields: map[string]string{"updates": "required"}}
	}
	for i := range updates {
		status, err := model.ParseAttendance(string(updates[i].Attendance))
		if err != nil {
			return &Error{Code: ErrInvalidAttendance}
		}
		updates[i].Attendance = status
		if err := s.validate.Struct(updates[i]); err != nil {
			return invalid(err)
		}
	}
	if err := s.backend.BulkAttendance(ctx, updates); err != nil {
		return upstream(err)
	}
	return nil
}

// AssignTeachers sets the per-segment teachers. Absent candidates cannot be assigned.
func (s *Service) AssignTeachers(ctx context.Context, userID, scheduleID string, a model.TeacherAssignment) error {
	if err := s.validate.Struct(a); err != nil {
		return invalid(err)
	}
	booking, err := s.booking(ctx, userID, scheduleID)
	if err != nil {
		return err
	}
	if booking.AttendanceStatus() == model.AttendanceAbsent {
		return &Error{Code: ErrAttendanceAbsent}
	}
	if err := s.backend.AssignTeachers(ctx, userID, scheduleID, a); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *Service) booking(ctx context.Context, userID, scheduleID string) (model.Booking, error) {
	booking, ok, err := s.backend.FindBooking(ctx, userID, scheduleID)
	if err != nil {
		return model.Booking{}, upstream(err)
	}
	if !ok {
		return model.Booking{}, &Error{Code: ErrBookingNotFound}
	}
	return booking, nil
}
