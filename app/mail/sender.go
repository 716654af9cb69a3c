package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-course/config"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const sendEndpoint = "/v3/mail/send"

var ErrDelivery = errors.New("mail delivery failed")

type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

type SendGridOption func(*sendGridOptions)

type sendGridOptions struct {
	host string
}

// WithSendGridHost points the client at another API host.
func WithSendGridHost(host string) SendGridOption {
	return func(o *sendGridOptions) {
		o.host = host
	}
}

func NewSendGridSender(cfg config.MailConfig, opts ...SendGridOption) *SendGridSender {
	options := &sendGridOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	if options.host != "" {
		request := sendgrid.GetRequest(cfg.SendGridAPIKey, sendEndpoint, options.host)
		request.Method = "POST"
		client = &sendgrid.Client{Request: request}
	}

	return &SendGridSender{
		client: client,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.To)
	message := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.PlainText, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDelivery, err.Error())
	}
	if response.StatusCode >= 400 {
		logrus.WithFields(logrus.Fields{
			"status": response.StatusCode,
			"body":   response.Body,
		}).Warn("SendGrid rejected message")
		return fmt.Errorf("%w: sendgrid responded with status %d", ErrDelivery, response.StatusCode)
	}

	logrus.WithFields(logrus.Fields{
		"to":     msg.To,
		"status": response.StatusCode,
	}).Debug("Mail sent")
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is used
// when no mail transport is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Mail transport not configured, message logged instead of sent")
	logrus.WithField("to", msg.To).Debug(msg.PlainText)
	return nil
}

// NewSender picks SendGrid when configured and the log sender otherwise.
func NewSender(cfg config.MailConfig) Sender {
	if cfg.Enabled() {
		return NewSendGridSender(cfg)
	}
	return LogSender{}
}
