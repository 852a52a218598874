package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// WriterSender prints messages to Out instead of sending them. Meant for
// local development where Out is the terminal acting as a mailbox.
type WriterSender struct {
	Composer Composer
	Out      io.Writer

	mu sync.Mutex
}

func (s *WriterSender) SendPasswordReset(ctx context.Context, email, token, displayName string) error {
	msg := s.Composer.PasswordReset(email, token, displayName)

	s.mu.Lock()
	_, err := fmt.Fprintf(s.Out, "From: %s\nTo: %s\nSubject: %s\n\n%s\n", msg.From, msg.To, msg.Subject, msg.Body)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset written",
		slog.String("driver", "log"),
		slog.String("token_fingerprint", cryptox.FingerprintToken(token)),
	)
	return nil
}
