package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

var ErrSendFailed = errors.New("email delivery failed")

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	ToEmail     string
	ToName      string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Sender delivers transactional email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid sender, or a console sender when no API key is configured
func New(cfg config.SendGridConfig, logger *slog.Logger) Sender {
	if cfg.APIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return NewConsoleSender(logger)
	}
	return NewSendGridSender(cfg)
}

// ===== SENDGRID =====

type SendGridSender struct {
	apiKey    string
	host      string
	fromName  string
	fromEmail string
}

func NewSendGridSender(cfg config.SendGridConfig) *SendGridSender {
	return &SendGridSender{
		apiKey:    cfg.APIKey,
		host:      "https://api.sendgrid.com",
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}
}

// WithHost points the sender at another API host
func (s *SendGridSender) WithHost(host string) *SendGridSender {
	s.host = host
	return s
}

func (s *SendGridSender) build(msg Message) *sgmail.SGMailV3 {
	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)

	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	m := sgmail.NewSingleEmail(from, msg.Subject, to, text, msg.HTML)

	for _, a := range msg.Attachments {
		att := sgmail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.build(msg))

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: sendgrid status %d: %s", ErrSendFailed, resp.StatusCode, resp.Body)
	}
	return nil
}

// ===== CONSOLE =====

// ConsoleSender logs messages instead of sending them and keeps a copy for tests
type ConsoleSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
	err  error
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleSender{logger: logger}
}

func (c *ConsoleSender) Send(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}

	c.sent = append(c.sent, msg)
	c.logger.Info("Email sent to console",
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments))
	return nil
}

// FailWith makes every following Send return err. nil restores delivery.
func (c *ConsoleSender) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *ConsoleSender) SentMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}
