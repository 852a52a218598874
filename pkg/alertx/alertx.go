// Package alertx is the operator-facing failure channel. Failures that must
// not reach the end user (a reset email that didn't go out, a profile that
// could not be created) are reported here so someone can act on them.
package alertx

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// Reporter receives failures that were swallowed on the request path.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// LogReporter writes reports to the contextual logger at error level.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, err error, tags map[string]string) {
	attrs := make([]any, 0, len(tags)+1)
	attrs = append(attrs, slog.Any("error", err))
	for k, v := range tags {
		attrs = append(attrs, slog.String(k, v))
	}
	slogx.FromContext(ctx).Error("operator alert", attrs...)
}

// SentryReporter forwards reports to Sentry and also logs them.
type SentryReporter struct {
	hub *sentry.Hub
	log LogReporter
}

// InitSentry configures the global Sentry client. An empty dsn returns a nil
// reporter and no error, meaning "not configured".
func InitSentry(dsn, environment, release string) (*SentryReporter, error) {
	if dsn == "" {
		return nil, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	}); err != nil {
		return nil, err
	}

	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

// NewSentryReporter wraps an existing hub, mainly for tests.
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{hub: hub}
}

func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	r.log.Report(ctx, err, tags)

	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (r *SentryReporter) Flush() {
	r.hub.Flush(2 * time.Second)
}
