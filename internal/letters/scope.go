package letters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/internal/notifications"
	"github.com/JaimeStill/missive/internal/reviewers"
)

// scope is the state of one transition inside its unit of work.
type scope struct {
	ctx         context.Context
	uow         UnitOfWork
	letter      *Letter
	assignments []reviewers.Assignment
	now         time.Time
	events      []notifications.Event
	created     []string
}

// authorize returns the current step when actor is the user it awaits.
// An actor who already acted on this letter gets ErrInvalidState, so a
// repeated call fails on state rather than permission.
func (sc *scope) authorize(actor uuid.UUID) (reviewers.Assignment, error) {
	l := sc.letter

	if l.NextActionByID != nil && *l.NextActionByID == actor && l.CurrentStepIndex != nil {
		cur, ok := reviewers.Current(sc.assignments, *l.CurrentStepIndex)
		if !ok {
			return reviewers.Assignment{}, fmt.Errorf("%w: no assignment at step %d", ErrNotFound, *l.CurrentStepIndex)
		}
		if !cur.IsPending() {
			return reviewers.Assignment{}, fmt.Errorf("%w: step %d is %s", ErrInvalidState, cur.SequenceOrder, cur.Status)
		}
		if cur.UserID != actor {
			return reviewers.Assignment{}, fmt.Errorf("%w: step %d belongs to another user", ErrUnauthorized, cur.SequenceOrder)
		}
		return cur, nil
	}

	for _, a := range sc.assignments {
		if a.UserID == actor && !a.IsPending() {
			return reviewers.Assignment{}, fmt.Errorf("%w: user already acted at step %d", ErrInvalidState, a.SequenceOrder)
		}
	}
	return reviewers.Assignment{}, fmt.Errorf("%w: letter awaits another user", ErrUnauthorized)
}

// save persists a and replaces its copy in the loaded chain.
func (sc *scope) save(a reviewers.Assignment) error {
	if err := sc.uow.Assignments().Update(sc.ctx, a); err != nil {
		return err
	}
	for i := range sc.assignments {
		if sc.assignments[i].ID == a.ID {
			sc.assignments[i] = a
		}
	}
	return nil
}

func (sc *scope) record(actor uuid.UUID, action audit.Action, comment *string, details audit.Details) error {
	e := audit.New(sc.letter.ID, actor, action, comment, details, sc.now)
	return sc.uow.Actions().Append(sc.ctx, e)
}

// notify queues an event for delivery after commit.
func (sc *scope) notify(kind notifications.Kind, recipient, actor uuid.UUID, comment *string) {
	sc.events = append(sc.events, notifications.Event{
		Kind:        kind,
		RecipientID: recipient,
		LetterID:    sc.letter.ID,
		Title:       sc.letter.Title,
		ActorID:     actor,
		Comment:     comment,
	})
}

// created records blob keys written by this transition. They are removed if
// the unit of work does not commit.
func (sc *scope) wrote(keys ...string) {
	sc.created = append(sc.created, keys...)
}
