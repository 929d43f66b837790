package surface

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// EmailConfig holds SMTP connection details.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	To       string
	Username string
	Password string
}

// Email delivers the alert as a plain-text email digest. Useful for
// deployments where no push endpoint is available at all.
type Email struct {
	cfg EmailConfig
}

// NewEmail creates an Email surface from config.
func NewEmail(cfg EmailConfig) *Email {
	return &Email{cfg: cfg}
}

func (s *Email) Name() string { return "email" }

func (s *Email) Show(ctx context.Context, n *domain.Notification) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := buildMIME(s.cfg.From, s.cfg.To, n.Title, n.Body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	// Run the blocking SMTP call in a goroutine so we respect ctx cancellation.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", s.cfg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send timed out: %w", ctx.Err())
	}
}

func buildMIME(from, to, subject, body string) []byte {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body,
	)
	return []byte(msg)
}
