package reviewers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/pkg/repository"
)

// Repository errors.
var (
	ErrNotFound  = errors.New("assignment not found")
	ErrDuplicate = errors.New("assignment already exists")
)

const columns = `id, letter_id, user_id, sequence_order, status, comment, acted_at, reassigned_from_user_id, created_at`

// Repository persists assignments. It runs against whatever DB handle it is
// given, so a unit of work constructs one per transaction.
type Repository struct {
	db repository.DB
}

// NewRepository creates a Repository over db.
func NewRepository(db repository.DB) *Repository {
	return &Repository{db: db}
}

// ListByLetter returns a letter's assignments ordered by sequence order.
func (r *Repository) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]Assignment, error) {
	q := `SELECT ` + columns + ` FROM reviewer_assignments WHERE letter_id = $1 ORDER BY sequence_order`

	as, err := repository.QueryMany(ctx, r.db, q, []any{letterID}, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return as, nil
}

// Insert stores new assignments.
func (r *Repository) Insert(ctx context.Context, as []Assignment) error {
	q := `
		INSERT INTO reviewer_assignments(` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, a := range as {
		_, err := r.db.ExecContext(ctx, q,
			a.ID, a.LetterID, a.UserID, a.SequenceOrder, a.Status,
			a.Comment, a.ActedAt, a.ReassignedFromUserID, a.CreatedAt,
		)
		if err != nil {
			return repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
	}
	return nil
}

// Update writes the mutable fields of an existing assignment.
func (r *Repository) Update(ctx context.Context, a Assignment) error {
	q := `
		UPDATE reviewer_assignments
		SET user_id = $2, status = $3, comment = $4, acted_at = $5, reassigned_from_user_id = $6
		WHERE id = $1`

	err := repository.ExecExpectOne(ctx, r.db, q,
		a.ID, a.UserID, a.Status, a.Comment, a.ActedAt, a.ReassignedFromUserID,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func scanAssignment(s repository.Scanner) (Assignment, error) {
	var a Assignment
	err := s.Scan(
		&a.ID,
		&a.LetterID,
		&a.UserID,
		&a.SequenceOrder,
		&a.Status,
		&a.Comment,
		&a.ActedAt,
		&a.ReassignedFromUserID,
		&a.CreatedAt,
	)
	return a, err
}
