package operations

import (
	"github.com/go-playground/validator/v10"

	"mockdesk/dashboard/internal/model"
)

const (
	ErrValidationFailed    = "validation_failed"
	ErrInvalidSegment      = "invalid_segment"
	ErrInvalidAttendance   = "invalid_attendance"
	ErrInvalidStatus       = "invalid_status"
	ErrForbidden           = "forbidden"
	ErrNotAssignedTeacher  = "not_assigned_teacher"
	ErrSegmentLocked       = "segment_locked"
	ErrAttendanceAbsent    = "attendance_absent"
	ErrBookingNotFound     = "booking_not_found"
	ErrScheduleNotFound    = "schedule_not_found"
	ErrSlotNotFound        = "slot_not_found"
	ErrSlotFull            = "slot_full"
	ErrReminderAlreadySent = "reminder_already_sent"
	ErrTRFRenderFailed     = "trf_render_failed"
	ErrMissingRecipient    = "missing_recipient"
	ErrUpstream            = "upstream_error"
	ErrServerError         = "server_error"
)

type Error struct {
	Code   string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func upstream(err error) error {
	return &Error{Code: ErrUpstream, Err: err}
}

func invalid(err error) error {
	if _, ok := err.(validator.ValidationErrors); ok {
		return &Error{Code: ErrValidationFailed, Fields: model.FieldErrors(err), Err: err}
	}
	return &Error{Code: ErrValidationFailed, Err: err}
}
