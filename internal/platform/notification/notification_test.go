package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RenderWelcome(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateWelcome, map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Welcome to MedBook" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "Dear Ada,") {
		t.Errorf("expected name substitution, got %q", body)
	}
}

func TestTemplateEngine_RenderStatusChanged(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateStatusChanged, map[string]string{
		"name":   "Ada",
		"date":   "2025-01-06",
		"time":   "14:00",
		"status": "confirmed",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Appointment confirmed" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "2025-01-06 at 14:00 is now confirmed") {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestTemplateEngine_MissingKeyLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()

	_, body, err := e.Render(TemplateWelcome, map[string]string{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(body, "{{name}}") {
		t.Errorf("expected unresolved placeholder to remain, got %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()

	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_RegisterOverride(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{
		ID:      TemplateWelcome,
		Subject: "Hello {{name}}",
		Body:    "custom body",
	})

	subject, body, err := e.Render(TemplateWelcome, map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Hello Ada" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if body != "custom body" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestNotifier_SendsEmail(t *testing.T) {
	mock := &MockEmailSender{}
	n := NewNotifier(mock, NewTemplateEngine(), zerolog.Nop())

	n.Welcome(context.Background(), "ada@example.com", "Ada")

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(calls))
	}
	if calls[0].To != "ada@example.com" {
		t.Errorf("unexpected recipient: %q", calls[0].To)
	}
	if calls[0].Subject != "Welcome to MedBook" {
		t.Errorf("unexpected subject: %q", calls[0].Subject)
	}
}

func TestNotifier_FailureIsSwallowed(t *testing.T) {
	mock := &MockEmailSender{ShouldFail: true, FailError: "relay down"}
	n := NewNotifier(mock, NewTemplateEngine(), zerolog.Nop())

	// Must not panic or propagate the error.
	n.StatusChanged(context.Background(), "ada@example.com", "Ada", "2025-01-06", "14:00", "cancelled")

	if len(mock.Calls()) != 1 {
		t.Fatalf("expected the send to be attempted once")
	}
}

func TestNotifier_SkipsEmptyRecipient(t *testing.T) {
	mock := &MockEmailSender{}
	n := NewNotifier(mock, NewTemplateEngine(), zerolog.Nop())

	n.Welcome(context.Background(), "", "Ada")

	if len(mock.Calls()) != 0 {
		t.Error("expected no send for empty recipient")
	}
}

func TestNotifier_NilReceiverIsSafe(t *testing.T) {
	var n *Notifier
	n.Welcome(context.Background(), "ada@example.com", "Ada")
}
