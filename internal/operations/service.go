package operations

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/db"
	"mockdesk/dashboard/internal/mail"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/sentflags"
)

// DispatchLog records TRF deliveries. It is optional.
type DispatchLog interface {
	InsertDispatch(ctx context.Context, arg db.InsertDispatchParams) (db.Dispatch, error)
	ListDispatches(ctx context.Context, userID, scheduleID string, limit int) ([]db.Dispatch, error)
}

// Service runs dashboard mutations against the booking backend.
type Service struct {
	backend    *backend.Client
	flags      sentflags.Store
	sender     mail.Sender
	dispatches DispatchLog
	validate   *validator.Validate
	log        *zap.Logger
	centreName string
	logo       []byte
	location   *time.Location
	now        func() time.Time
}

type Options struct {
	Backend    *backend.Client
	Flags      sentflags.Store
	Sender     mail.Sender
	Dispatches DispatchLog
	Validate   *validator.Validate
	Logger     *zap.Logger
	CentreName string
	Logo       []byte
	Location   *time.Location
}

func New(opts Options) *Service {
	s := &Service{
		backend:    opts.Backend,
		flags:      opts.Flags,
		sender:     opts.Sender,
		dispatches: opts.Dispatches,
		validate:   opts.Validate,
		log:        opts.Logger,
		centreName: opts.CentreName,
		logo:       opts.Logo,
		location:   opts.Location,
		now:        time.Now,
	}
	if s.flags == nil {
		s.flags = sentflags.NewMemoryStore()
	}
	if s.sender == nil && s.backend != nil {
		s.sender = mail.BackendSender{Client: s.backend}
	}
	if s.validate == nil {
		s.validate = model.NewValidator()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}
