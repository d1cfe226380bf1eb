package hydrate

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/debounce"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/sentflags"
	"mockdesk/dashboard/internal/workpool"
)

// Source is the subset of the backend client the hydrator reads from.
type Source interface {
	CachedFeedbackStatus(ctx context.Context, userID, scheduleID string) (model.FeedbackRecord, error)
	TRFEmailStatus(ctx context.Context, userID, scheduleID string) (bool, error)
	AssignedTeachers(ctx context.Context, userID, scheduleID string) (model.TeacherAssignment, error)
}

// Annotation is the per-row state a booking table shows next to each booking.
type Annotation struct {
	BookingID         string                   `json:"bookingId"`
	UserID            string                   `json:"userId"`
	ScheduleID        string                   `json:"scheduleId"`
	Actions           model.RowActions         `json:"actions"`
	FeedbackStatus    model.FeedbackStatus     `json:"feedbackStatus"`
	CompletedSegments int                      `json:"completedSegments"`
	FeedbackComplete  bool                     `json:"feedbackComplete"`
	TRFEmailSent      bool                     `json:"trfEmailSent"`
	Teachers          map[model.Segment]string `json:"teachers,omitempty"`
	Error             string                   `json:"error,omitempty"`
}

type Hydrator struct {
	src       Source
	flags     sentflags.Store
	pool      *workpool.Pool
	debouncer *debounce.Debouncer
	log       *zap.Logger
}

func New(src Source, flags sentflags.Store, pool *workpool.Pool, debouncer *debounce.Debouncer, log *zap.Logger) *Hydrator {
	if flags == nil {
		flags = sentflags.NewMemoryStore()
	}
	if pool == nil {
		pool = workpool.New(workpool.DefaultConcurrency)
	}
	if debouncer == nil {
		debouncer = debounce.New(debounce.DefaultDelay)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hydrator{src: src, flags: flags, pool: pool, debouncer: debouncer, log: log}
}

// Annotate looks up feedback, TRF and teacher state for each row through the worker
// pool. A failed lookup leaves its row partially annotated with Error set.
func (h *Hydrator) Annotate(ctx context.Context, rows []model.Booking) []Annotation {
	out, errs := workpool.Map(ctx, h.pool, rows, h.annotate)
	for i, err := range errs {
		if err == nil {
			continue
		}
		if out[i].BookingID == "" {
			out[i] = baseAnnotation(rows[i])
		}
		out[i].Error = "lookup_failed"
		h.log.Warn("row annotation failed",
			zap.String("booking_id", rows[i].ID),
			zap.Error(err),
		)
	}
	return out
}

// AnnotateDebounced collapses bursts for the same view key. Callers replaced by a
// newer request, or whose results land after one, get debounce.ErrSuperseded.
func (h *Hydrator) AnnotateDebounced(ctx context.Context, viewKey string, rows []model.Booking) ([]Annotation, error) {
	ticket, err := h.debouncer.Wait(ctx, viewKey)
	if err != nil {
		return nil, err
	}
	out := h.Annotate(ctx, rows)
	if ticket.Stale() {
		return nil, debounce.ErrSuperseded
	}
	return out, nil
}

func baseAnnotation(b model.Booking) Annotation {
	return Annotation{
		BookingID:  b.ID,
		UserID:     b.UserID.First(),
		ScheduleID: b.ScheduleID,
		Actions:    b.Actions(),
	}
}

func (h *Hydrator) annotate(ctx context.Context, b model.Booking) (Annotation, error) {
	a := baseAnnotation(b)
	if a.UserID == "" || a.ScheduleID == "" {
		return a, nil
	}

	rec, err := h.src.CachedFeedbackStatus(ctx, a.UserID, a.ScheduleID)
	if err != nil {
		return a, errors.Wrap(err, "feedback status")
	}
	a.FeedbackStatus = rec.FeedbackStatus
	a.CompletedSegments = rec.CompletedCount()
	a.FeedbackComplete = rec.Complete()

	sent, err := h.flags.IsSent(ctx, sentflags.TRFEmail, sentflags.TRFKey(a.UserID, a.ScheduleID))
	if err != nil {
		h.log.Warn("sent flag lookup failed", zap.Error(err))
	}
	if !sent {
		sent, err = h.src.TRFEmailStatus(ctx, a.UserID, a.ScheduleID)
		if err != nil {
			return a, errors.Wrap(err, "trf status")
		}
	}
	a.TRFEmailSent = sent

	teachers, err := h.src.AssignedTeachers(ctx, a.UserID, a.ScheduleID)
	if err != nil {
		return a, errors.Wrap(err, "assigned teachers")
	}
	a.Teachers = teachers.Labels()
	return a, nil
}
