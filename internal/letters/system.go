// Package letters runs the letter approval workflow: submission, the ordered
// review chain, final approval with document assembly, rejection and
// resubmission.
//
// Every operation is one unit of work. The letter row is locked for the
// duration, preconditions are checked against the locked state, and the
// letter, its assignments and the audit entry are written together.
// Notifications go out only after the unit of work commits.
package letters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/assembler"
	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/internal/notifications"
	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/internal/reviewers"
	"github.com/JaimeStill/missive/internal/templates"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/storage"
)

// System defines the public contract for letter workflow operations.
type System interface {
	Handler() *Handler

	Submit(ctx context.Context, cmd SubmitCommand) (*Letter, error)
	ApproveStep(ctx context.Context, id uuid.UUID, cmd ApproveCommand) (*Letter, error)
	RejectStep(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Letter, error)
	ReassignStep(ctx context.Context, id uuid.UUID, cmd ReassignCommand) (*Letter, error)
	FinalApprove(ctx context.Context, id uuid.UUID, cmd FinalApproveCommand) (*Letter, error)
	FinalReject(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Letter, error)
	Resubmit(ctx context.Context, id uuid.UUID, cmd ResubmitCommand) (*Letter, error)
	Comment(ctx context.Context, id uuid.UUID, cmd CommentCommand) (*audit.Entry, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error

	Find(ctx context.Context, id uuid.UUID) (*Letter, error)
	// Viewable returns the letter when userID submitted it or holds an
	// assignment on it, and ErrUnauthorized otherwise.
	Viewable(ctx context.Context, id, userID uuid.UUID) (*Letter, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Letter], error)
	Assignments(ctx context.Context, id uuid.UUID) ([]reviewers.Assignment, error)
	Actions(ctx context.Context, id uuid.UUID, order audit.Order) ([]audit.Entry, error)
	// Artifact returns the final PDF of an approved letter.
	Artifact(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// Deps are the collaborators of the workflow. Now defaults to the UTC wall
// clock and a zero MaxBodySize selects DefaultMaxBodySize.
type Deps struct {
	Store       Store
	Storage     storage.System
	Assembler   assembler.System
	Templates   templates.System
	Dispatcher  notifications.Dispatcher
	Logger      *slog.Logger
	Pagination  pagination.Config
	MaxBodySize int64
	// PublicBase is the absolute URL prefix of the public letter route; the
	// letter id is appended to form a letter's public link.
	PublicBase string
	Now        func() time.Time
}

type service struct {
	store      Store
	storage    storage.System
	assembler  assembler.System
	templates  templates.System
	dispatcher notifications.Dispatcher
	logger     *slog.Logger
	pagination pagination.Config
	maxBody    int64
	publicBase string
	now        func() time.Time
}

// New creates the letter workflow.
func New(d Deps) System {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		store:      d.Store,
		storage:    d.Storage,
		assembler:  d.Assembler,
		templates:  d.Templates,
		dispatcher: d.Dispatcher,
		logger:     d.Logger.With("system", "letters"),
		pagination: d.Pagination,
		maxBody:    d.MaxBodySize,
		publicBase: strings.TrimRight(d.PublicBase, "/"),
		now:        now,
	}
}

// PublicBase joins the externally reachable base URL and the API base path
// into the prefix of public letter links.
func PublicBase(baseURL, apiBasePath string) string {
	return strings.TrimRight(baseURL, "/") + apiBasePath + "/public/letters"
}

// SourceKey is the storage key of a letter's rendered template source.
func SourceKey(id uuid.UUID) string {
	return fmt.Sprintf("letters/%s/source.pdf", id)
}

// ReviewKey is the storage key of the working artifact produced when the
// reviewer at order stamps placements.
func ReviewKey(id uuid.UUID, order int) string {
	return fmt.Sprintf("letters/%s/review-%d.pdf", id, order)
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination, s.maxBody)
}

func (s *service) Submit(ctx context.Context, cmd SubmitCommand) (*Letter, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, fmt.Errorf("submit: %w: title is required", ErrValidation)
	}
	if cmd.SubmitterID == uuid.Nil {
		return nil, fmt.Errorf("submit: %w: submitter is required", ErrValidation)
	}
	if cmd.Source.Source == nil {
		return nil, fmt.Errorf("submit: %w: source is required", ErrValidation)
	}

	id := uuid.New()
	now := s.now()

	as, err := reviewers.Build(id, cmd.ReviewerIDs, cmd.ApproverID, now)
	if err != nil {
		return nil, fmt.Errorf("submit: %w: %w", ErrValidation, err)
	}

	working, rendered, err := s.prepare(ctx, id, cmd.Source.Source)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	l := &Letter{
		ID:                 id,
		Title:              title,
		SubmittedBy:        cmd.SubmitterID,
		Status:             StatusDraft,
		Source:             cmd.Source,
		WorkingArtifactRef: working,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var sc *scope

	err = s.store.Do(ctx, func(u UnitOfWork) error {
		sc = &scope{ctx: ctx, uow: u, letter: l, assignments: as, now: now}

		if first, ok := reviewers.NextPending(as); ok {
			l.Status = StatusPendingReview
			if first.IsApprover() {
				l.Status = StatusPendingApproval
			}
			l.awaiting(first.SequenceOrder, first.UserID)
			sc.notify(notifications.KindActionRequired, first.UserID, cmd.SubmitterID, nil)
		} else {
			if err := s.finalize(sc, nil); err != nil {
				return err
			}
			sc.notify(notifications.KindApproved, cmd.SubmitterID, cmd.SubmitterID, nil)
		}

		if err := u.Letters().Insert(ctx, l); err != nil {
			return err
		}
		if len(as) > 0 {
			if err := u.Assignments().Insert(ctx, as); err != nil {
				return err
			}
		}

		details := audit.Details{"reviewer_ids": cmd.ReviewerIDs}
		if cmd.ApproverID != nil {
			details["approver_id"] = *cmd.ApproverID
		}
		return sc.record(cmd.SubmitterID, audit.ActionSubmit, nil, details)
	})

	if err != nil {
		if rendered {
			s.discard(ctx, working)
		}
		s.rollback(ctx, sc)
		return nil, fmt.Errorf("submit: %w", err)
	}

	s.logger.Info("letter submitted", "id", l.ID, "status", l.Status, "assignments", len(as))
	s.dispatch(ctx, sc.events)
	return l, nil
}

// prepare resolves the source into a working artifact key. Rendered template
// output is stored under the letter's prefix and reported as rendered.
func (s *service) prepare(ctx context.Context, id uuid.UUID, src Source) (string, bool, error) {
	switch v := src.(type) {
	case Upload:
		if err := s.requireBlob(ctx, v.StorageKey); err != nil {
			return "", false, err
		}
		return v.StorageKey, false, nil

	case FromTemplate:
		pdf, err := s.templates.Render(ctx, v.TemplateID, v.FormData)
		switch {
		case errors.Is(err, templates.ErrNotFound):
			return "", false, fmt.Errorf("%w: template %s", ErrNotFound, v.TemplateID)
		case errors.Is(err, templates.ErrInvalidForm):
			return "", false, fmt.Errorf("%w: %w", ErrValidation, err)
		case err != nil:
			return "", false, fmt.Errorf("render template: %w", err)
		}

		key := SourceKey(id)
		if err := storage.Put(ctx, s.storage, key, pdf, "application/pdf"); err != nil {
			return "", false, fmt.Errorf("store rendered source: %w", err)
		}
		return key, true, nil

	default:
		return "", false, fmt.Errorf("%w: unsupported source", ErrValidation)
	}
}

func (s *service) requireBlob(ctx context.Context, key string) error {
	ok, err := s.storage.Exists(ctx, key)
	if err != nil {
		if storage.IsKeyError(err) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return fmt.Errorf("check source document: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: source document %s", ErrNotFound, key)
	}
	return nil
}

func (s *service) ApproveStep(ctx context.Context, id uuid.UUID, cmd ApproveCommand) (*Letter, error) {
	if len(cmd.Placements.Of(placement.KindQRCode)) > 0 {
		return nil, fmt.Errorf("approve step: %w: qrcode placements are only accepted at final approval", ErrValidation)
	}

	return s.transition(ctx, "approve step", id, func(sc *scope) error {
		l := sc.letter
		if l.Status != StatusPendingReview {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}

		cur, err := sc.authorize(cmd.ActorID)
		if err != nil {
			return err
		}

		details := audit.Details{"sequence_order": cur.SequenceOrder}
		if len(cmd.Placements) > 0 {
			key, err := s.overlay(sc, cur.SequenceOrder, cmd.Placements)
			if err != nil {
				return err
			}
			l.WorkingArtifactRef = key
			details["working_artifact_ref"] = key
		}

		cur.Approve(cmd.Comment, sc.now)
		if err := sc.save(cur); err != nil {
			return err
		}

		if next, ok := reviewers.NextAfter(sc.assignments, cur.SequenceOrder); ok {
			l.awaiting(next.SequenceOrder, next.UserID)
			sc.notify(notifications.KindActionRequired, next.UserID, cmd.ActorID, cmd.Comment)
		} else if approver, ok := reviewers.Approver(sc.assignments); ok {
			l.Status = StatusPendingApproval
			l.awaiting(approver.SequenceOrder, approver.UserID)
			sc.notify(notifications.KindActionRequired, approver.UserID, cmd.ActorID, cmd.Comment)
		} else {
			if err := s.finalize(sc, nil); err != nil {
				return err
			}
			sc.notify(notifications.KindApproved, l.SubmittedBy, cmd.ActorID, cmd.Comment)
		}

		return sc.record(cmd.ActorID, audit.ActionApproveReview, cmd.Comment, details)
	})
}

func (s *service) RejectStep(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Letter, error) {
	return s.reject(ctx, "reject step", id, cmd, StatusPendingReview, audit.ActionRejectReview)
}

func (s *service) FinalReject(ctx context.Context, id uuid.UUID, cmd RejectCommand) (*Letter, error) {
	return s.reject(ctx, "final reject", id, cmd, StatusPendingApproval, audit.ActionFinalReject)
}

// reject ends the workflow at the current step. Earlier approvals are left
// as they are; resubmission resets them.
func (s *service) reject(
	ctx context.Context,
	op string,
	id uuid.UUID,
	cmd RejectCommand,
	from Status,
	action audit.Action,
) (*Letter, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%s: %w: reason is required", op, ErrValidation)
	}

	return s.transition(ctx, op, id, func(sc *scope) error {
		l := sc.letter
		if l.Status != from {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}

		cur, err := sc.authorize(cmd.ActorID)
		if err != nil {
			return err
		}

		cur.Reject(reason, sc.now)
		if err := sc.save(cur); err != nil {
			return err
		}

		l.settle(StatusRejected)
		sc.notify(notifications.KindRejected, l.SubmittedBy, cmd.ActorID, &reason)

		return sc.record(cmd.ActorID, action, &reason, audit.Details{"sequence_order": cur.SequenceOrder})
	})
}

func (s *service) ReassignStep(ctx context.Context, id uuid.UUID, cmd ReassignCommand) (*Letter, error) {
	if cmd.NewUserID == uuid.Nil {
		return nil, fmt.Errorf("reassign step: %w: new_user_id is required", ErrValidation)
	}

	return s.transition(ctx, "reassign step", id, func(sc *scope) error {
		l := sc.letter
		if l.Status != StatusPendingReview && l.Status != StatusPendingApproval {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}

		cur, err := sc.authorize(cmd.ActorID)
		if err != nil {
			return err
		}

		if reviewers.HasUser(sc.assignments, cmd.NewUserID) {
			return fmt.Errorf("%w: user %s already holds an assignment on this letter", ErrValidation, cmd.NewUserID)
		}

		cur.Reassign(cmd.NewUserID, cmd.ActorID)
		if err := sc.save(cur); err != nil {
			return err
		}

		l.awaiting(cur.SequenceOrder, cmd.NewUserID)
		sc.notify(notifications.KindActionRequired, cmd.NewUserID, cmd.ActorID, cmd.Reason)

		return sc.record(cmd.ActorID, audit.ActionReassignReview, cmd.Reason, audit.Details{
			"sequence_order":          cur.SequenceOrder,
			"reassigned_to_user_id":   cmd.NewUserID,
			"reassigned_from_user_id": cmd.ActorID,
		})
	})
}

func (s *service) FinalApprove(ctx context.Context, id uuid.UUID, cmd FinalApproveCommand) (*Letter, error) {
	return s.transition(ctx, "final approve", id, func(sc *scope) error {
		l := sc.letter
		if l.Status != StatusPendingApproval {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}

		cur, err := sc.authorize(cmd.ActorID)
		if err != nil {
			return err
		}
		if !cur.IsApprover() {
			return fmt.Errorf("%w: step %d is not the approval step", ErrInvalidState, cur.SequenceOrder)
		}

		if err := s.finalize(sc, cmd.Placements); err != nil {
			return err
		}

		cur.Approve(cmd.Comment, sc.now)
		if err := sc.save(cur); err != nil {
			return err
		}

		sc.notify(notifications.KindApproved, l.SubmittedBy, cmd.ActorID, cmd.Comment)

		return sc.record(cmd.ActorID, audit.ActionFinalApprove, cmd.Comment, audit.Details{
			"final_artifact_ref": *l.FinalArtifactRef,
			"public_link":        *l.PublicLink,
			"placements":         len(cmd.Placements),
		})
	})
}

func (s *service) Resubmit(ctx context.Context, id uuid.UUID, cmd ResubmitCommand) (*Letter, error) {
	comment := strings.TrimSpace(cmd.Comment)
	if comment == "" {
		return nil, fmt.Errorf("resubmit: %w: comment is required", ErrValidation)
	}

	return s.transition(ctx, "resubmit", id, func(sc *scope) error {
		l := sc.letter
		if l.Status != StatusRejected {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}
		if l.SubmittedBy != cmd.SubmitterID {
			return fmt.Errorf("%w: only the submitter may resubmit", ErrUnauthorized)
		}

		details := audit.Details{}
		if cmd.StorageKey != nil {
			if err := s.requireBlob(sc.ctx, *cmd.StorageKey); err != nil {
				return err
			}
			l.WorkingArtifactRef = *cmd.StorageKey
			details["working_artifact_ref"] = *cmd.StorageKey
		}

		for _, a := range sc.assignments {
			a.Reset()
			if err := sc.save(a); err != nil {
				return err
			}
		}

		first, ok := reviewers.First(sc.assignments)
		if !ok {
			return fmt.Errorf("%w: letter has no reviewer chain", ErrInvalidState)
		}

		l.Status = StatusPendingReview
		if first.IsApprover() {
			l.Status = StatusPendingApproval
		}
		l.awaiting(first.SequenceOrder, first.UserID)
		sc.notify(notifications.KindActionRequired, first.UserID, cmd.SubmitterID, &comment)

		return sc.record(cmd.SubmitterID, audit.ActionResubmit, &comment, details)
	})
}

func (s *service) Comment(ctx context.Context, id uuid.UUID, cmd CommentCommand) (*audit.Entry, error) {
	text := strings.TrimSpace(cmd.Comment)
	if text == "" {
		return nil, fmt.Errorf("comment: %w: comment is required", ErrValidation)
	}

	var entry audit.Entry
	err := s.store.Do(ctx, func(u UnitOfWork) error {
		l, err := u.Letters().Lock(ctx, id)
		if err != nil {
			return err
		}

		as, err := u.Assignments().ListByLetter(ctx, id)
		if err != nil {
			return err
		}

		if l.SubmittedBy != cmd.ActorID && !reviewers.HasUser(as, cmd.ActorID) {
			return fmt.Errorf("%w: only participants may comment", ErrUnauthorized)
		}

		entry = audit.New(id, cmd.ActorID, audit.ActionComment, &text, nil, s.now())
		return u.Actions().Append(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("comment: %w", err)
	}

	return &entry, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	var (
		l  *Letter
		as []reviewers.Assignment
	)
	err := s.store.Do(ctx, func(u UnitOfWork) error {
		var err error
		l, err = u.Letters().Lock(ctx, id)
		if err != nil {
			return err
		}

		if l.SubmittedBy != actorID {
			return fmt.Errorf("%w: only the submitter may delete", ErrUnauthorized)
		}
		if !l.Status.Terminal() {
			return fmt.Errorf("%w: letter is %s", ErrInvalidState, l.Status)
		}

		as, err = u.Assignments().ListByLetter(ctx, id)
		if err != nil {
			return err
		}

		return u.Letters().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	for _, key := range owned(l, as) {
		s.discard(ctx, key)
	}

	s.logger.Info("letter deleted", "id", id, "status", l.Status)
	return nil
}

// owned lists the blobs stored under the letter's own prefix. Uploaded
// sources belong to the submitter and are kept.
func owned(l *Letter, as []reviewers.Assignment) []string {
	var keys []string
	if l.Source.Source != nil && l.Source.Source.Kind() == SourceTemplate {
		keys = append(keys, SourceKey(l.ID))
	}
	for _, a := range as {
		keys = append(keys, ReviewKey(l.ID, a.SequenceOrder))
	}
	if l.FinalArtifactRef != nil {
		keys = append(keys, *l.FinalArtifactRef)
	}
	if l.QRArtifactRef != nil {
		keys = append(keys, *l.QRArtifactRef)
	}
	return keys
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*Letter, error) {
	return s.store.Find(ctx, id)
}

func (s *service) Viewable(ctx context.Context, id, userID uuid.UUID) (*Letter, error) {
	l, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.SubmittedBy == userID {
		return l, nil
	}

	var as []reviewers.Assignment
	err = s.store.Do(ctx, func(u UnitOfWork) error {
		var err error
		as, err = u.Assignments().ListByLetter(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !reviewers.HasUser(as, userID) {
		return nil, fmt.Errorf("%w: only participants may view this letter", ErrUnauthorized)
	}
	return l, nil
}

func (s *service) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Letter], error) {
	page.Normalize(s.pagination)
	return s.store.List(ctx, page, filters)
}

func (s *service) Assignments(ctx context.Context, id uuid.UUID) ([]reviewers.Assignment, error) {
	if _, err := s.store.Find(ctx, id); err != nil {
		return nil, err
	}

	var as []reviewers.Assignment
	err := s.store.Do(ctx, func(u UnitOfWork) error {
		var err error
		as, err = u.Assignments().ListByLetter(ctx, id)
		return err
	})
	return as, err
}

func (s *service) Actions(ctx context.Context, id uuid.UUID, order audit.Order) ([]audit.Entry, error) {
	if _, err := s.store.Find(ctx, id); err != nil {
		return nil, err
	}

	var entries []audit.Entry
	err := s.store.Do(ctx, func(u UnitOfWork) error {
		var err error
		entries, err = u.Actions().List(ctx, id, order)
		return err
	})
	return entries, err
}

func (s *service) Artifact(ctx context.Context, id uuid.UUID) ([]byte, error) {
	l, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusApproved || l.FinalArtifactRef == nil {
		return nil, fmt.Errorf("%w: letter %s has no final artifact", ErrNotFound, id)
	}

	data, err := storage.Get(ctx, s.storage, *l.FinalArtifactRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: final artifact missing", ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// transition locks the letter, loads its chain and runs fn. The letter is
// written back when fn succeeds; fn writes assignments and the audit entry
// through the scope.
func (s *service) transition(ctx context.Context, op string, id uuid.UUID, fn func(*scope) error) (*Letter, error) {
	var sc *scope

	err := s.store.Do(ctx, func(u UnitOfWork) error {
		l, err := u.Letters().Lock(ctx, id)
		if err != nil {
			return err
		}

		as, err := u.Assignments().ListByLetter(ctx, id)
		if err != nil {
			return err
		}

		sc = &scope{ctx: ctx, uow: u, letter: l, assignments: as, now: s.now()}
		if err := fn(sc); err != nil {
			return err
		}

		l.UpdatedAt = sc.now
		return u.Letters().Update(ctx, l)
	})
	if err != nil {
		s.rollback(ctx, sc)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("letter transitioned", "op", op, "id", id, "status", sc.letter.Status)
	s.dispatch(ctx, sc.events)
	return sc.letter, nil
}

// finalize assembles the final artifact from the working artifact and moves
// the letter to approved. Any failure is an assembly failure.
func (s *service) finalize(sc *scope, ps placement.List) error {
	l := sc.letter
	pdf, err := storage.Get(sc.ctx, s.storage, l.WorkingArtifactRef)
	if err != nil {
		return fmt.Errorf("%w: read working artifact: %w", ErrAssembly, err)
	}

	// Only approved letters hold final artifacts and approval is terminal,
	// so these keys never belong to committed state yet.
	sc.wrote(assembler.FinalKey(l.ID), assembler.QRKey(l.ID))

	res, err := s.assembler.Finalize(sc.ctx, assembler.FinalizeRequest{
		LetterID:   l.ID,
		PDF:        pdf,
		Placements: ps,
		PublicURL:  fmt.Sprintf("%s/%s", s.publicBase, l.ID),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}

	l.settle(StatusApproved)
	l.FinalArtifactRef = &res.FinalKey
	l.QRArtifactRef = &res.QRKey
	l.PublicLink = &res.PublicURL
	l.Placements = ps
	approvedAt := sc.now
	l.ApprovedAt = &approvedAt
	return nil
}

// overlay stamps review placements onto the working artifact and stores the
// result under a key unique to the step.
func (s *service) overlay(sc *scope, order int, ps placement.List) (string, error) {
	l := sc.letter
	pdf, err := storage.Get(sc.ctx, s.storage, l.WorkingArtifactRef)
	if err != nil {
		return "", fmt.Errorf("%w: read working artifact: %w", ErrAssembly, err)
	}

	out, err := s.assembler.Overlay(sc.ctx, assembler.OverlayRequest{PDF: pdf, Placements: ps})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssembly, err)
	}

	// A resubmitted letter can still point at an earlier round's review key.
	// Only a key this step creates is discarded on rollback.
	key := ReviewKey(l.ID, order)
	existed, err := s.storage.Exists(sc.ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: check working artifact: %w", ErrAssembly, err)
	}

	if err := storage.Put(sc.ctx, s.storage, key, out, "application/pdf"); err != nil {
		return "", fmt.Errorf("%w: store working artifact: %w", ErrAssembly, err)
	}
	if !existed {
		sc.wrote(key)
	}
	return key, nil
}

// dispatch sends events after commit. It is detached from the request so a
// client disconnect does not drop notifications for a committed transition.
func (s *service) dispatch(ctx context.Context, events []notifications.Event) {
	notifications.Send(context.WithoutCancel(ctx), s.dispatcher, s.logger, events)
}

// rollback removes blobs written by a transition that did not commit.
func (s *service) rollback(ctx context.Context, sc *scope) {
	if sc == nil {
		return
	}
	for _, key := range sc.created {
		s.discard(context.WithoutCancel(ctx), key)
	}
}

func (s *service) discard(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("blob delete failed", "key", key, "error", err)
	}
}
