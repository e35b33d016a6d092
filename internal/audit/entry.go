// Package audit records every workflow action taken on a letter.
// Entries are append-only; they disappear only when their letter is deleted.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags the kind of transition an entry records.
type Action string

// Workflow actions.
const (
	ActionSubmit         Action = "submit"
	ActionApproveReview  Action = "approve_review"
	ActionRejectReview   Action = "reject_review"
	ActionReassignReview Action = "reassign_review"
	ActionFinalApprove   Action = "final_approve"
	ActionFinalReject    Action = "final_reject"
	ActionResubmit       Action = "resubmit"
	ActionComment        Action = "comment"
)

// Order selects the direction entries are listed in.
type Order string

// List orders. Descending is the display order; ascending reconstructs history.
const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder maps a query value to an Order, defaulting to Descending.
func ParseOrder(s string) Order {
	if Order(s) == Ascending {
		return Ascending
	}
	return Descending
}

// Details is the free-form payload attached to an entry.
type Details map[string]any

// Entry is one recorded action.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	LetterID  uuid.UUID `json:"letter_id"`
	UserID    uuid.UUID `json:"user_id"`
	Action    Action    `json:"action_type"`
	Comment   *string   `json:"comment"`
	Details   Details   `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds an entry stamped with a fresh id and now.
func New(letterID, userID uuid.UUID, action Action, comment *string, details Details, now time.Time) Entry {
	return Entry{
		ID:        uuid.New(),
		LetterID:  letterID,
		UserID:    userID,
		Action:    action,
		Comment:   comment,
		Details:   details,
		CreatedAt: now,
	}
}
