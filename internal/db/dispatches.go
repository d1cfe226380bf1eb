package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Dispatch is one TRF delivery attempt that reached the mail channel.
type Dispatch struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"userId"`
	ScheduleID string    `json:"scheduleId"`
	Filename   string    `json:"filename"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient,omitempty"`
	SentBy     string    `json:"sentBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trf_dispatches (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	schedule_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	channel TEXT NOT NULL,
	recipient TEXT NOT NULL DEFAULT '',
	sent_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trf_dispatches_pair_idx ON trf_dispatches (user_id, schedule_id, created_at DESC);
`

func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, schemaSQL)
	return errors.Wrap(err, "ensure schema")
}

const insertDispatch = `
INSERT INTO trf_dispatches (id, user_id, schedule_id, filename, channel, recipient, sent_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, user_id, schedule_id, filename, channel, recipient, sent_by, created_at
`

type InsertDispatchParams struct {
	UserID     string
	ScheduleID string
	Filename   string
	Channel    string
	Recipient  string
	SentBy     string
	CreatedAt  time.Time
}

func (q *Queries) InsertDispatch(ctx context.Context, arg InsertDispatchParams) (Dispatch, error) {
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := q.db.QueryRow(ctx, insertDispatch, uuid.New(), arg.UserID, arg.ScheduleID, arg.Filename, arg.Channel, arg.Recipient, arg.SentBy, createdAt)
	var d Dispatch
	err := row.Scan(&d.ID, &d.UserID, &d.ScheduleID, &d.Filename, &d.Channel, &d.Recipient, &d.SentBy, &d.CreatedAt)
	return d, errors.Wrap(err, "insert dispatch")
}

const listDispatches = `
SELECT id, user_id, schedule_id, filename, channel, recipient, sent_by, created_at
FROM trf_dispatches
WHERE user_id = $1 AND schedule_id = $2
ORDER BY created_at DESC
LIMIT $3
`

func (q *Queries) ListDispatches(ctx context.Context, userID, scheduleID string, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(ctx, listDispatches, userID, scheduleID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list dispatches")
	}
	defer rows.Close()
	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.UserID, &d.ScheduleID, &d.Filename, &d.Channel, &d.Recipient, &d.SentBy, &d.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan dispatch")
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "list dispatches")
}
