package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mailer delivers a single message to a single recipient. Implementations
// must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, recipientName, recipientEmail, subject, body string, headers map[string]string) error
}

// outboxChannel is where mail envelopes are published for the delivery
// worker that owns the actual SMTP transport.
const outboxChannel = "mail:outbox"

// sendTimeout bounds each outbox publish so notification dispatch can never
// stall a request-state mutation.
const sendTimeout = 3 * time.Second

// MailEnvelope is the JSON document published to the outbox.
type MailEnvelope struct {
	RecipientName  string            `json:"recipient_name"`
	RecipientEmail string            `json:"recipient_email"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	Headers        map[string]string `json:"headers,omitempty"`
	EnqueuedAt     time.Time         `json:"enqueued_at"`
}

// RedisMailer publishes mail envelopes to a Redis outbox channel.
// Delivery is fire-and-forget: a dead Redis means a failed send, never a
// blocked caller.
type RedisMailer struct {
	rdb *redis.Client
}

// NewRedisMailer creates a mailer backed by the given Redis client.
func NewRedisMailer(rdb *redis.Client) *RedisMailer {
	return &RedisMailer{rdb: rdb}
}

// Send publishes the envelope to the outbox channel.
func (m *RedisMailer) Send(ctx context.Context, recipientName, recipientEmail, subject, body string, headers map[string]string) error {
	if m.rdb == nil {
		return fmt.Errorf("mail outbox unavailable: redis client is nil")
	}
	if recipientEmail == "" {
		return fmt.Errorf("mail recipient has no email address")
	}

	envelope := MailEnvelope{
		RecipientName:  recipientName,
		RecipientEmail: recipientEmail,
		Subject:        subject,
		Body:           body,
		Headers:        headers,
		EnqueuedAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal mail envelope: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return m.rdb.Publish(sendCtx, outboxChannel, payload).Err()
}
