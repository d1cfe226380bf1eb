package operations

import (
	"context"

	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/sentflags"
)

func (s *Service) DeleteSchedule(ctx context.Context, scheduleID string) error {
	if scheduleID == "" {
		return &Error{Code: ErrScheduleNotFound}
	}
	if err := s.backend.DeleteSchedule(ctx, scheduleID); err != nil {
		return upstream(err)
	}
	_ = s.flags.Clear(ctx, sentflags.Reminder, scheduleID)
	return nil
}

// SendReminder emails the schedule's candidates once. force sends again.
func (s *Service) SendReminder(ctx context.Context, scheduleID string, force bool) error {
	if !force {
		sent, err := s.flags.IsSent(ctx, sentflags.Reminder, scheduleID)
		if err != nil {
			return &Error{Code: ErrServerError, Err: err}
		}
		if sent {
			return &Error{Code: ErrReminderAlreadySent}
		}
	}
	if err := s.backend.SendReminder(ctx, scheduleID); err != nil {
		return upstream(err)
	}
	if err := s.flags.MarkSent(ctx, sentflags.Reminder, scheduleID); err != nil {
		return &Error{Code: ErrServerError, Err: err}
	}
	return nil
}

// BookSlot books a candidate into a schedule slot that still has seats.
func (s *Service) BookSlot(ctx context.Context, req model.BookSlotRequest) (model.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Booking{}, invalid(err)
	}
	schedules, err := s.backend.ListSchedules(ctx)
	if err != nil {
		return model.Booking{}, upstream(err)
	}
	var schedule *model.Schedule
	for i := range schedules {
		if schedules[i].ID == req.ScheduleID {
			schedule = &schedules[i]
			break
		}
	}
	if schedule == nil {
		return model.Booking{}, &Error{Code: ErrScheduleNotFound}
	}
	slot, ok := schedule.Slot(req.SlotID)
	if !ok {
		return model.Booking{}, &Error{Code: ErrSlotNotFound}
	}
	if slot.AvailableSeats <= 0 {
		return model.Booking{}, &Error{Code: ErrSlotFull}
	}
	if req.TestType == "" {
		req.TestType = schedule.TestType
	}
	if req.TestSystem == "" {
		req.TestSystem = schedule.TestSystem
	}
	booking, err := s.backend.BookSlot(ctx, req)
	if err != nil {
		return model.Booking{}, upstream(err)
	}
	return booking, nil
}
