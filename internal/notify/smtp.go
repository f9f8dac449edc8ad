// Package notify sends the transactional emails around account approval.
// Delivery is always best effort; billing never blocks on a mail server.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Sender   string
	Password string
}

// SMTPSender delivers mail through a single SMTP relay using STARTTLS when
// the server offers it.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender builds a sender, or nil when no host is configured so the
// caller can fall back to dry-run mode.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers a single HTML email.
func (s *SMTPSender) Send(to, subject, html string) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.cfg.Sender,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		html,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, s.cfg.Sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender is the dry-run sender used when SMTP is not configured. It
// records the mail in the log instead of delivering it.
type LogSender struct {
	Log zerolog.Logger
}

// Send implements common.EmailSender.
func (l LogSender) Send(to, subject, _ string) error {
	l.Log.Info().Str("to", to).Str("subject", subject).Msg("email dry-run")
	return nil
}
