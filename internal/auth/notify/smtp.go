package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// SMTPConfig addresses the mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender mails messages through a relay. STARTTLS is used whenever the
// server offers it; PLAIN credentials are only sent once TLS is up.
type SMTPSender struct {
	Composer Composer
	Config   SMTPConfig
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, email, token, displayName string) error {
	msg, err := s.Composer.PasswordReset(email, token, displayName).mailMsg()
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	client, err := mail.NewClient(s.Config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset mailed", slog.String("driver", "smtp"))
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	port := s.Config.Port
	if port == 0 {
		port = 587
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(30 * time.Second),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{ServerName: s.Config.Host, MinVersion: tls.VersionTLS12}),
	}
	if s.Config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Config.Username),
			mail.WithPassword(s.Config.Password),
		)
	}
	return opts
}

// mailMsg converts a rendered message into a go-mail message with encoded
// headers and a quoted-printable text body.
func (m Message) mailMsg() (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}
