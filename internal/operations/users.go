package operations

import (
	"context"
	"strings"

	"mockdesk/dashboard/internal/model"
)

func (s *Service) SetUserStatus(ctx context.Context, userID, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !model.ValidUserStatus(status) {
		return &Error{Code: ErrInvalidStatus}
	}
	if err := s.backend.SetUserStatus(ctx, userID, status); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *Service) SetUserBlocked(ctx context.Context, userID string, blocked bool) error {
	if err := s.backend.SetUserBlocked(ctx, userID, blocked); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *Service) AddMock(ctx context.Context, userID string, entry model.MockEntry) error {
	if err := s.validate.Struct(entry); err != nil {
		return invalid(err)
	}
	if err := s.backend.AddMock(ctx, userID, entry); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *Service) UpdateMock(ctx context.Context, userID, mockID string, entry model.MockEntry) error {
	if err := s.validate.Struct(entry); err != nil {
		return invalid(err)
	}
	if err := s.backend.UpdateMock(ctx, userID, mockID, entry); err != nil {
		return upstream(err)
	}
	return nil
}

func (s *Service) DeleteMock(ctx context.Context, userID, mockID string) error {
	if err := s.backend.DeleteMock(ctx, userID, mockID); err != nil {
		return upstream(err)
	}
	return nil
}
