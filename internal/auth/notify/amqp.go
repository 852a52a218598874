package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// PasswordResetQueue is the durable queue reset events are published to.
const PasswordResetQueue = "auth.password_reset"

// PasswordResetEvent is the JSON body published for each reset request. A
// mailer service consumes it and renders its own email from these fields.
type PasswordResetEvent struct {
	Type        string    `json:"type"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Subject     string    `json:"subject"`
	ResetLink   string    `json:"resetLink"`
	Body        string    `json:"body"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewPasswordResetEvent converts a rendered message into its event form.
func NewPasswordResetEvent(msg Message, now time.Time) PasswordResetEvent {
	return PasswordResetEvent{
		Type:        "password_reset_requested",
		Email:       msg.To,
		DisplayName: msg.DisplayName,
		Subject:     msg.Subject,
		ResetLink:   msg.Link,
		Body:        msg.Body,
		OccurredAt:  now.UTC(),
	}
}

// AMQPPublisher publishes reset events to RabbitMQ. The connection is opened
// lazily and reopened after the broker drops it.
type AMQPPublisher struct {
	Composer Composer
	URL      string
	Queue    string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher returns a publisher for url. Nothing is dialled until the
// first send.
func NewAMQPPublisher(url string, composer Composer) *AMQPPublisher {
	return &AMQPPublisher{Composer: composer, URL: url, Queue: PasswordResetQueue}
}

func (p *AMQPPublisher) queue() string {
	if p.Queue == "" {
		return PasswordResetQueue
	}
	return p.Queue
}

// channelLocked returns an open channel with the queue declared. p.mu must
// be held.
func (p *AMQPPublisher) channelLocked() (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.URL)
		if err != nil {
			return nil, fmt.Errorf("amqp: dial: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp: channel: %w", err)
	}
	// Durable so events survive a broker restart.
	if _, err := ch.QueueDeclare(p.queue(), true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp: queue declare: %w", err)
	}
	p.channel = ch
	return ch, nil
}

func (p *AMQPPublisher) SendPasswordReset(ctx context.Context, email, token, displayName string) error {
	now := time.Now()
	event := NewPasswordResetEvent(p.Composer.PasswordReset(email, token, displayName), now)
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		// Drop the channel so the next send reconnects.
		_ = ch.Close()
		p.channel = nil
		return fmt.Errorf("amqp: publish: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset published",
		slog.String("driver", "amqp"),
		slog.String("queue", p.queue()),
	)
	return nil
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}
