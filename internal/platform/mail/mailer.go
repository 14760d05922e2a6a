package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/biovolt/marketplace-api/internal/platform/config"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
)

// Mailer delivers transactional email. Delivery failures never propagate to
// callers; the order flow must not depend on mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New returns an SMTP mailer, or a logging no-op when the configuration is
// incomplete.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" || cfg.From == "" {
		return noopMailer{}
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, _ string) error {
	requestctx.Logger(ctx).Info("mail delivery skipped, smtp not configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
