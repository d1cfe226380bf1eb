package mail

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridSender mails the TRF directly through SendGrid.
type SendgridSender struct {
	key  string
	host string
	from *sgmail.Email
}

func NewSendgridSender(key, fromName, fromEmail string) *SendgridSender {
	return &SendgridSender{key: key, host: sendgridHost, from: sgmail.NewEmail(fromName, fromEmail)}
}

func (*SendgridSender) Channel() string { return ChannelSendgrid }

func (s *SendgridSender) prepare(msg TRFMessage) (*sgmail.SGMailV3, error) {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return nil, errors.New("trf message has no recipient")
	}
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject()
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text()))
	m.AddAttachment(&sgmail.Attachment{
		Content:     base64.StdEncoding.EncodeToString(msg.PDF),
		Type:        "application/pdf",
		Filename:    msg.Filename,
		Disposition: "attachment",
	})
	return m, nil
}

// SendTRF posts the message to SendGrid. The request itself is not cancellable, so a
// ctx that is already done fails before anything is sent.
func (s *SendgridSender) SendTRF(ctx context.Context, msg TRFMessage) error {
	m, err := s.prepare(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
