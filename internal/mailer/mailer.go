package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"pawhaven/internal/config"
)

// Mailer sends account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// New returns an SMTP mailer when a host is configured, otherwise a mailer
// that logs the verification link. The log fallback keeps local development
// working without a mail relay.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return &logMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

// SendVerification sends the email-verification link over SMTP.
func (m *smtpMailer) SendVerification(ctx context.Context, to, link string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your PawHaven account\r\n\r\n"+
		"Welcome to PawHaven!\r\n\r\nPlease verify your email address by opening this link:\r\n%s\r\n\r\n"+
		"The link expires in 48 hours.\r\n", m.cfg.From, to, link)

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

type logMailer struct{}

// SendVerification logs the link instead of mailing it.
func (m *logMailer) SendVerification(ctx context.Context, to, link string) error {
	log.Printf("SMTP disabled; verification link for %s: %s", to, link)
	return nil
}
