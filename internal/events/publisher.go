package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Completion event types.
const (
	TypeChallengeCompleted = "challenge.completed"
	TypeLessonCompleted    = "lesson.completed"
)

// CompletionEvent is broadcast when a learner completes a challenge or lesson.
type CompletionEvent struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	Slug       string    `json:"slug"`
	Score      int       `json:"score"`
	XPEarned   int       `json:"xp_earned"`
	TotalXP    int       `json:"total_xp"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers completion events to downstream consumers.
type Publisher interface {
	PublishCompletion(ctx context.Context, event CompletionEvent) error
}

// Subject returns the completions subject for the configured prefix.
func Subject(prefix string) string {
	prefix = strings.Trim(strings.ReplaceAll(strings.TrimSpace(prefix), ":", "."), ".")
	if prefix == "" {
		prefix = "codequest"
	}
	return prefix + ".completions"
}

// Encode serialises an event, stamping OccurredAt when unset.
func Encode(event CompletionEvent) ([]byte, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(event)
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewPublisher returns a NATS-backed publisher, or a no-op one when conn is nil.
func NewPublisher(conn *nats.Conn, subjectPrefix string, logger zerolog.Logger) Publisher {
	if conn == nil {
		return NopPublisher{}
	}
	return &natsPublisher{
		conn:    conn,
		subject: Subject(subjectPrefix),
		logger:  logger.With().Str("component", "completion_publisher").Logger(),
	}
}

func (p *natsPublisher) PublishCompletion(ctx context.Context, event CompletionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode completion event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}

	p.logger.Debug().
		Str("subject", p.subject).
		Str("type", event.Type).
		Uint("user_id", event.UserID).
		Msg("completion event published")
	return nil
}

// NopPublisher discards events.
type NopPublisher struct{}

// PublishCompletion implements Publisher.
func (NopPublisher) PublishCompletion(context.Context, CompletionEvent) error {
	return nil
}
