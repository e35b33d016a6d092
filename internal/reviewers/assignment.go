// Package reviewers owns the ordered chain of participants that act on a
// letter: intermediate reviewers followed by an optional final approver.
package reviewers

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of a single assignment.
type Status string

// Assignment statuses.
const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusSkipped    Status = "skipped"
	StatusReassigned Status = "reassigned"
)

// ApproverSequence is the sequence order reserved for the final approver.
// Every reviewer order is strictly lower.
const ApproverSequence = 9999

// MaxReviewers is the longest reviewer chain a letter can carry.
const MaxReviewers = ApproverSequence - 1

// Assignment binds one participant to one step of a letter's chain.
type Assignment struct {
	ID                   uuid.UUID  `json:"id"`
	LetterID             uuid.UUID  `json:"letter_id"`
	UserID               uuid.UUID  `json:"user_id"`
	SequenceOrder        int        `json:"sequence_order"`
	Status               Status     `json:"status"`
	Comment              *string    `json:"comment"`
	ActedAt              *time.Time `json:"acted_at"`
	ReassignedFromUserID *uuid.UUID `json:"reassigned_from_user_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

// IsApprover reports whether the assignment holds the final approver slot.
func (a Assignment) IsApprover() bool {
	return a.SequenceOrder == ApproverSequence
}

// IsPending reports whether the assignment still awaits action.
func (a Assignment) IsPending() bool {
	return a.Status == StatusPending
}

// Approve records an approval at now.
func (a *Assignment) Approve(comment *string, now time.Time) {
	a.Status = StatusApproved
	a.Comment = comment
	a.ActedAt = &now
}

// Reject records a rejection at now.
func (a *Assignment) Reject(reason string, now time.Time) {
	a.Status = StatusRejected
	a.Comment = &reason
	a.ActedAt = &now
}

// Reassign hands the step to another user. The sequence order is kept so the
// step still runs at the same point in the chain.
func (a *Assignment) Reassign(to, from uuid.UUID) {
	a.UserID = to
	a.ReassignedFromUserID = &from
	a.Status = StatusPending
	a.ActedAt = nil
}

// Reset returns the assignment to its freshly submitted state.
func (a *Assignment) Reset() {
	a.Status = StatusPending
	a.Comment = nil
	a.ActedAt = nil
	a.ReassignedFromUserID = nil
}
