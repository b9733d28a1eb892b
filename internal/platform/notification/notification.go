// Package notification delivers transactional email for account and
// appointment events, with template rendering and a test double.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Template identifiers used by the services.
const (
	TemplateWelcome           = "welcome"
	TemplateAppointmentBooked = "appointment-booked"
	TemplateStatusChanged     = "appointment-status-changed"
)

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateWelcome,
			Subject: "Welcome to MedBook",
			Body:    "Dear {{name}}, your account has been created. You can now book appointments online.",
		},
		{
			ID:      TemplateAppointmentBooked,
			Subject: "Appointment Requested",
			Body:    "Dear {{name}}, your appointment with Dr. {{doctor}} on {{date}} at {{time}} has been requested and is awaiting confirmation.",
		},
		{
			ID:      TemplateStatusChanged,
			Subject: "Appointment {{status}}",
			Body:    "Dear {{name}}, your appointment on {{date}} at {{time}} is now {{status}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender sends email through a plain SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Reset clears recorded calls.
func (m *MockEmailSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Notifier sends domain emails best-effort: delivery failures are logged,
// never returned, so a flaky relay cannot fail a booking.
type Notifier struct {
	sender    EmailSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewNotifier(sender EmailSender, templates *TemplateEngine, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		templates: templates,
		logger:    logger,
	}
}

// Welcome greets a newly registered user.
func (n *Notifier) Welcome(ctx context.Context, to, name string) {
	n.send(ctx, TemplateWelcome, to, map[string]string{"name": name})
}

// AppointmentBooked confirms receipt of a new appointment request.
func (n *Notifier) AppointmentBooked(ctx context.Context, to, name, doctor, date, timeOfDay string) {
	n.send(ctx, TemplateAppointmentBooked, to, map[string]string{
		"name":   name,
		"doctor": doctor,
		"date":   date,
		"time":   timeOfDay,
	})
}

// StatusChanged tells the patient their appointment moved to a new status.
func (n *Notifier) StatusChanged(ctx context.Context, to, name, date, timeOfDay, status string) {
	n.send(ctx, TemplateStatusChanged, to, map[string]string{
		"name":   name,
		"date":   date,
		"time":   timeOfDay,
		"status": status,
	})
}

func (n *Notifier) send(ctx context.Context, templateID, to string, data map[string]string) {
	if n == nil || n.sender == nil || to == "" {
		return
	}

	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		n.logger.Error().Err(err).Str("template", templateID).Msg("render notification")
		return
	}

	if err := n.sender.SendEmail(ctx, to, subject, body); err != nil {
		n.logger.Error().Err(err).
			Str("template", templateID).
			Str("recipient", to).
			Msg("send notification")
		return
	}

	n.logger.Debug().
		Str("template", templateID).
		Str("recipient", to).
		Msg("notification sent")
}
