// Package notify delivers password reset notifications. Three senders share
// one message composer: SMTP for direct mail, AMQP for handing the event to a
// mailer service, and a writer-backed sender for local development.
package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultFrontendURL = "http://localhost:4200"
	DefaultFrom        = "noreply@shop.local"
	resetSubject       = "Password Reset Request"
)

// Composer renders password reset messages.
type Composer struct {
	FrontendURL string
	From        string
	// LinkTTL is quoted in the body; it should match the reset token TTL.
	LinkTTL time.Duration
}

// Message is a rendered notification.
type Message struct {
	From        string
	To          string
	DisplayName string
	Subject     string
	Link        string
	Body        string
}

// ResetLink is FrontendURL + "/reset-password?token=" + token.
func (c Composer) ResetLink(token string) string {
	base := c.FrontendURL
	if base == "" {
		base = DefaultFrontendURL
	}
	return strings.TrimRight(base, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// PasswordReset builds the reset message for email.
func (c Composer) PasswordReset(email, token, displayName string) Message {
	from := c.From
	if from == "" {
		from = DefaultFrom
	}
	if displayName == "" {
		displayName = email
	}
	link := c.ResetLink(token)
	return Message{
		From:        from,
		To:          email,
		DisplayName: displayName,
		Subject:     resetSubject,
		Link:        link,
		Body:        resetBody(displayName, link, c.LinkTTL),
	}
}

func resetBody(name, link string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return fmt.Sprintf(`Hello %s,

You asked to reset your password.

Open the link below to choose a new password:
%s

This link is valid for %s only.

If you did not ask for a reset, you can ignore this email.
`, name, link, humanDuration(ttl))
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
