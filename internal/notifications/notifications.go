// Package notifications tells users about letter transitions after they
// commit. Delivery is best-effort and never affects the transition itself.
package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Kind names what happened to the recipient's letter.
type Kind string

// Notification kinds.
const (
	KindActionRequired Kind = "action_required"
	KindApproved       Kind = "letter_approved"
	KindRejected       Kind = "letter_rejected"
)

// Event is one notification for one recipient.
type Event struct {
	Kind        Kind
	RecipientID uuid.UUID
	LetterID    uuid.UUID
	Title       string
	ActorID     uuid.UUID
	Comment     *string
}

// Dispatcher delivers events.
type Dispatcher interface {
	Notify(ctx context.Context, e Event) error
}

// Send delivers events in order. Failures are logged and do not stop the
// remaining deliveries.
func Send(ctx context.Context, d Dispatcher, logger *slog.Logger, events []Event) {
	for _, e := range events {
		if err := d.Notify(ctx, e); err != nil {
			logger.Warn(
				"notification failed",
				"kind", e.Kind,
				"letter_id", e.LetterID,
				"recipient_id", e.RecipientID,
				"error", err,
			)
		}
	}
}

type logDispatcher struct {
	logger *slog.Logger
}

// NewLog returns a dispatcher that only records events in the log. It is used
// when no message broker is configured.
func NewLog(logger *slog.Logger) Dispatcher {
	return &logDispatcher{logger: logger.With("system", "notifications")}
}

func (d *logDispatcher) Notify(_ context.Context, e Event) error {
	d.logger.Info(
		"notification",
		"kind", e.Kind,
		"letter_id", e.LetterID,
		"recipient_id", e.RecipientID,
		"actor_id", e.ActorID,
	)
	return nil
}
