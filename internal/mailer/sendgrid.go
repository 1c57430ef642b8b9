package mailer

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SendgridSender struct {
	key  string
	from *sgmail.Email
}

func NewSendgridSender(key, fromName, fromEmail string) *SendgridSender {
	return &SendgridSender{key: key, from: sgmail.NewEmail(fromName, fromEmail)}
}

func (s *SendgridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return m
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return apperr.External("sendgrid", "", "send failed", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return apperr.External("sendgrid", http.StatusText(res.StatusCode), res.Body, nil)
	}
	return nil
}
