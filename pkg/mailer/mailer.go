// Package mailer delivers short transactional messages such as one-time codes.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a plain-text email to a single recipient.
type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds the sender identity and the SendGrid key.
type Config struct {
	APIKey      string
	FromName    string
	FromAddress string
}

// New returns a SendGrid mailer when a key is configured, else a log mailer.
func New(cfg Config, logger *zap.Logger) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLogMailer(logger)
	}
	return NewSendGridMailer(cfg, logger)
}

// SendGridMailer posts to the SendGrid v3 API.
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     *zap.Logger
}

// NewSendGridMailer constructs the mailer.
func NewSendGridMailer(cfg Config, logger *zap.Logger) *SendGridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.FromName
	if name == "" {
		name = "Campus Timetable"
	}
	return &SendGridMailer{
		key:        cfg.APIKey,
		host:       sendgridHost,
		from:       sgmail.NewEmail(name, cfg.FromAddress),
		subjPrefix: "[" + name + "] ",
		logger:     logger,
	}
}

// WithHost points the mailer at another API host (tests).
func (m *SendGridMailer) WithHost(host string) *SendGridMailer {
	m.host = host
	return m
}

// Send delivers msg synchronously so the caller can retry on failure.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Warn("sendgrid rejected message", zap.Int("status", res.StatusCode), zap.String("body", res.Body))
		return fmt.Errorf("sendgrid send: status %d", res.StatusCode)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.Name, msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return mail
}

// LogMailer writes messages to the log instead of sending them. Sent messages
// are kept for inspection.
type LogMailer struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer constructs the console mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email", zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.String("body", msg.Text))
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages logged so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
