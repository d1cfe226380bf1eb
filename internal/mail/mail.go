package mail

import (
	"context"
	"fmt"
	"strings"

	"mockdesk/dashboard/internal/backend"
)

const (
	ChannelBackend  = "backend"
	ChannelSendgrid = "sendgrid"
)

// TRFMessage is a rendered TRF on its way to the candidate.
type TRFMessage struct {
	UserID     string
	ScheduleID string
	ToName     string
	ToEmail    string
	TestName   string
	Filename   string
	PDF        []byte
}

func (m TRFMessage) Subject() string {
	test := strings.TrimSpace(m.TestName)
	if test == "" {
		test = "Mock Test"
	}
	return fmt.Sprintf("Your %s Test Report Form", test)
}

func (m TRFMessage) Text() string {
	name := strings.TrimSpace(m.ToName)
	if name == "" {
		name = "Candidate"
	}
	return fmt.Sprintf("Dear %s,\n\nPlease find your Test Report Form attached (%s).\n\nBest of luck with your preparation.\n", name, m.Filename)
}

// Sender delivers a TRF. Channel names the delivery path for logs and metrics.
type Sender interface {
	Channel() string
	SendTRF(ctx context.Context, msg TRFMessage) error
}

// BackendSender hands the PDF to the booking backend, which emails it.
type BackendSender struct {
	Client *backend.Client
}

func (BackendSender) Channel() string { return ChannelBackend }

func (s BackendSender) SendTRF(ctx context.Context, msg TRFMessage) error {
	return s.Client.SendTRFEmail(ctx, msg.UserID, msg.ScheduleID, msg.Filename, msg.PDF)
}
