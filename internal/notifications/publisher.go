package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/directory"
	"github.com/JaimeStill/missive/pkg/broker"
)

// Message is the JSON payload published for an event.
type Message struct {
	Kind       Kind           `json:"kind"`
	LetterID   uuid.UUID      `json:"letter_id"`
	Title      string         `json:"title"`
	Recipient  directory.User `json:"recipient"`
	Actor      directory.User `json:"actor"`
	Comment    *string        `json:"comment,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Subject returns the subject events of kind are published on.
func Subject(prefix string, kind Kind) string {
	return fmt.Sprintf("%s.%s", prefix, kind)
}

type publisher struct {
	broker broker.System
	dir    directory.System
	prefix string
	logger *slog.Logger
}

// NewPublisher returns a dispatcher that publishes events to the broker,
// enriched with recipient and actor details from the directory.
func NewPublisher(b broker.System, dir directory.System, cfg *Config, logger *slog.Logger) Dispatcher {
	return &publisher{
		broker: b,
		dir:    dir,
		prefix: cfg.SubjectPrefix,
		logger: logger.With("system", "notifications"),
	}
}

func (p *publisher) Notify(ctx context.Context, e Event) error {
	users := directory.Resolve(ctx, p.dir, e.RecipientID, e.ActorID)

	data, err := json.Marshal(Message{
		Kind:       e.Kind,
		LetterID:   e.LetterID,
		Title:      e.Title,
		Recipient:  users[e.RecipientID],
		Actor:      users[e.ActorID],
		Comment:    e.Comment,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	subject := Subject(p.prefix, e.Kind)
	if err := p.broker.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("notification published", "subject", subject, "letter_id", e.LetterID)
	return nil
}
