// Package notify renders notification templates, hands messages to a Sender
// and records sent mail in the communication history.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

var (
	// ErrUnknownTemplate is returned when sending with a name not in the catalogue.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrMissingVariable is returned when a required template variable is absent.
	ErrMissingVariable = errors.New("missing template variable")
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Entry describes a sent message for the communication history.
type Entry struct {
	SenderID      int64
	To            string
	Subject       string
	Body          string
	LeadID        *int64
	ClientID      *int64
	TransactionID *int64
	CampaignID    *int64
	Trigger       string
}

type compiled struct {
	subject   *template.Template
	body      *template.Template
	variables []string
}

// Service is the notifier used by workflows.
type Service struct {
	sender    Sender
	comms     repository.CommunicationStore
	from      string
	templates map[string]compiled
	logger    Logger
}

// NewService compiles templates and returns a Service. from is the default
// sender address used when a send does not name one.
func NewService(sender Sender, comms repository.CommunicationStore, from string, templates []Template, logger Logger) (*Service, error) {
	s := &Service{
		sender:    sender,
		comms:     comms,
		from:      from,
		templates: make(map[string]compiled, len(templates)),
		logger:    logger,
	}
	for _, t := range templates {
		subject, err := parse(t.Name+".subject", t.Subject)
		if err != nil {
			return nil, err
		}
		body, err := parse(t.Name+".body", t.Body)
		if err != nil {
			return nil, err
		}
		s.templates[t.Name] = compiled{subject: subject, body: body, variables: t.Variables}
	}
	return s, nil
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats an amount as whole US dollars with digit grouping.
func Money(v any) string {
	switch n := v.(type) {
	case float64:
		return printer.Sprintf("$%.0f", n)
	case float32:
		return printer.Sprintf("$%.0f", n)
	case int:
		return printer.Sprintf("$%d", n)
	case int64:
		return printer.Sprintf("$%d", n)
	default:
		return fmt.Sprint(v)
	}
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"money": Money}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return t, nil
}

// Render fills a template. Every declared variable must be present in vars.
func (s *Service) Render(name string, vars map[string]any) (subject, body string, err error) {
	t, ok := s.templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	for _, v := range t.variables {
		if _, ok := vars[v]; !ok {
			return "", "", fmt.Errorf("%w: %s requires %q", ErrMissingVariable, name, v)
		}
	}
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, vars); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMissingVariable, err)
	}
	if err := t.body.Execute(&bb, vars); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMissingVariable, err)
	}
	return sb.String(), bb.String(), nil
}

// Send renders a template and delivers it to the recipient. It returns the
// rendered subject and body so callers can log the communication.
func (s *Service) Send(ctx context.Context, name, to, from string, vars map[string]any) (Message, error) {
	subject, body, err := s.Render(name, vars)
	if err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
		return Message{}, err
	}
	msg := Message{From: from, To: to, Subject: subject, Body: body}
	if err := s.deliver(ctx, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// SendRaw delivers a message without a template.
func (s *Service) SendRaw(ctx context.Context, to, subject, body string) error {
	return s.deliver(ctx, Message{To: to, Subject: subject, Body: body})
}

func (s *Service) deliver(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send %q: empty recipient", msg.Subject)
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Log records an automated outbound email in the communication history.
func (s *Service) Log(ctx context.Context, e Entry) error {
	comm := &models.Communication{
		Type:              models.CommunicationEmail,
		Direction:         "Outbound",
		Subject:           e.Subject,
		Content:           e.Body,
		Status:            "Sent",
		IsAutomated:       true,
		AutomationTrigger: e.Trigger,
		ExternalID:        uuid.NewString(),
		UserID:            e.SenderID,
		LeadID:            e.LeadID,
		ClientID:          e.ClientID,
		TransactionID:     e.TransactionID,
		CampaignID:        e.CampaignID,
	}
	if err := s.comms.CreateCommunication(ctx, comm); err != nil {
		return fmt.Errorf("log communication: %w", err)
	}
	return nil
}
