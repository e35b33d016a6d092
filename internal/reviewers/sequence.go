package reviewers

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidChain indicates a reviewer list that cannot form a chain.
var ErrInvalidChain = errors.New("invalid reviewer chain")

// Build creates the assignments for a new letter. Reviewers receive orders
// 1..n in the given order; the approver, when present, receives
// ApproverSequence.
func Build(letterID uuid.UUID, reviewerIDs []uuid.UUID, approverID *uuid.UUID, now time.Time) ([]Assignment, error) {
	if len(reviewerIDs) > MaxReviewers {
		return nil, fmt.Errorf("%w: at most %d reviewers", ErrInvalidChain, MaxReviewers)
	}

	seen := make(map[uuid.UUID]bool, len(reviewerIDs)+1)
	if approverID != nil {
		if *approverID == uuid.Nil {
			return nil, fmt.Errorf("%w: approver id is empty", ErrInvalidChain)
		}
		seen[*approverID] = true
	}

	out := make([]Assignment, 0, len(reviewerIDs)+1)
	for i, id := range reviewerIDs {
		if id == uuid.Nil {
			return nil, fmt.Errorf("%w: reviewer %d id is empty", ErrInvalidChain, i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: user %s appears more than once", ErrInvalidChain, id)
		}
		seen[id] = true
		out = append(out, newAssignment(letterID, id, i+1, now))
	}

	if approverID != nil {
		out = append(out, newAssignment(letterID, *approverID, ApproverSequence, now))
	}

	return out, nil
}

func newAssignment(letterID, userID uuid.UUID, order int, now time.Time) Assignment {
	return Assignment{
		ID:            uuid.New(),
		LetterID:      letterID,
		UserID:        userID,
		SequenceOrder: order,
		Status:        StatusPending,
		CreatedAt:     now,
	}
}

// NextPending returns the pending assignment with the lowest sequence order.
// The approver is included, so it is returned once every reviewer has acted.
func NextPending(as []Assignment) (Assignment, bool) {
	return lowest(as, func(a Assignment) bool { return a.IsPending() })
}

// NextAfter returns the pending reviewer assignment with the lowest sequence
// order strictly greater than order. The approver is never returned.
func NextAfter(as []Assignment, order int) (Assignment, bool) {
	return lowest(as, func(a Assignment) bool {
		return a.IsPending() && !a.IsApprover() && a.SequenceOrder > order
	})
}

// Approver returns the final approver assignment.
func Approver(as []Assignment) (Assignment, bool) {
	return Current(as, ApproverSequence)
}

// Current returns the assignment at the given sequence order.
func Current(as []Assignment, order int) (Assignment, bool) {
	for _, a := range as {
		if a.SequenceOrder == order {
			return a, true
		}
	}
	return Assignment{}, false
}

// First returns the assignment with the lowest sequence order regardless of status.
func First(as []Assignment) (Assignment, bool) {
	return lowest(as, func(Assignment) bool { return true })
}

// HasUser reports whether userID holds any assignment in the chain.
func HasUser(as []Assignment, userID uuid.UUID) bool {
	for _, a := range as {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

func lowest(as []Assignment, match func(Assignment) bool) (Assignment, bool) {
	var (
		best  Assignment
		found bool
	)
	for _, a := range as {
		if !match(a) {
			continue
		}
		if !found || a.SequenceOrder < best.SequenceOrder {
			best, found = a, true
		}
	}
	return best, found
}
