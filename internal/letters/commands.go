package letters

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/placement"
)

// SubmitCommand creates a letter and its reviewer chain.
type SubmitCommand struct {
	Title       string         `json:"title"`
	Source      SourceDocument `json:"source"`
	SubmitterID uuid.UUID      `json:"-"`
	ReviewerIDs []uuid.UUID    `json:"reviewer_ids"`
	ApproverID  *uuid.UUID     `json:"approver_id,omitempty"`
}

// ApproveCommand approves the current review step. Placements, when given,
// are stamped onto the working artifact.
type ApproveCommand struct {
	ActorID    uuid.UUID      `json:"-"`
	Comment    *string        `json:"comment,omitempty"`
	Placements placement.List `json:"placements,omitempty"`
}

// RejectCommand rejects the current review or approval step.
type RejectCommand struct {
	ActorID uuid.UUID `json:"-"`
	Reason  string    `json:"reason"`
}

// ReassignCommand hands the current step to another user.
type ReassignCommand struct {
	ActorID   uuid.UUID `json:"-"`
	NewUserID uuid.UUID `json:"new_user_id"`
	Reason    *string   `json:"reason,omitempty"`
}

// FinalApproveCommand approves the letter and produces its final artifact.
type FinalApproveCommand struct {
	ActorID    uuid.UUID      `json:"-"`
	Placements placement.List `json:"placements"`
	Comment    *string        `json:"comment,omitempty"`
}

// ResubmitCommand reopens a rejected letter. StorageKey optionally replaces
// the working artifact with a newly uploaded PDF.
type ResubmitCommand struct {
	SubmitterID uuid.UUID `json:"-"`
	StorageKey  *string   `json:"storage_key,omitempty"`
	Comment     string    `json:"comment"`
}

// CommentCommand adds a remark to a letter's history.
type CommentCommand struct {
	ActorID uuid.UUID `json:"-"`
	Comment string    `json:"comment"`
}
