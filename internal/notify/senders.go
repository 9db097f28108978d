package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
)

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	Logger Logger
}

// Send logs the message.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	preview := msg.Body
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	s.Logger.Info("email", "from", msg.From, "to", msg.To, "subject", msg.Subject, "body", preview)
	return nil
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
}

// NewSMTPSender creates an SMTPSender. Auth is only used when a username is set.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	s := &SMTPSender{addr: net.JoinHostPort(host, strconv.Itoa(port))}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

// Send delivers msg as a plain-text email.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return smtp.SendMail(s.addr, s.auth, msg.From, []string{msg.To}, []byte(b.String()))
}

// RecordingSender keeps every message in memory. Useful in tests and dry runs.
type RecordingSender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Send records msg, or returns Err when set.
func (s *RecordingSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
