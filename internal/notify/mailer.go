package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email. A returned error is treated as transient by the
// dispatcher and triggers bus-level redelivery.
type Mailer interface {
	Send(ctx context.Context, m Email) error
}

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host string `usage:"SMTP relay host"`
	Port int    `default:"587" usage:"SMTP relay port"`
	User string `usage:"SMTP username"`
	Pass string `usage:"SMTP password"`
	From string `usage:"Sender address (defaults to the SMTP username)" flag:"from-email"`
}

// SMTPMailer sends mail through an SMTP relay with PLAIN auth over STARTTLS
// (the net/smtp client upgrades automatically when the server advertises it).
type SMTPMailer struct {
	cfg  SMTPConfig
	from string
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{cfg: cfg, from: from}
}

// Send delivers one HTML email. Errors are transport failures; the caller
// retries via redelivery.
func (m *SMTPMailer) Send(_ context.Context, mail Email) error {
	msg := buildMessage(m.from, mail)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.from, []string{mail.To}, msg); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}

func buildMessage(from string, mail Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", mail.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mail.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(mail.HTML)
	return []byte(b.String())
}
