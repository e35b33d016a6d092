package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/pkg/repository"
)

// Repository errors.
var (
	ErrNotFound  = errors.New("action not found")
	ErrDuplicate = errors.New("action already recorded")
)

// Repository appends and lists entries. There is no update or delete.
type Repository struct {
	db repository.DB
}

// NewRepository creates a Repository over db.
func NewRepository(db repository.DB) *Repository {
	return &Repository{db: db}
}

// Append stores e.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	q := `
		INSERT INTO letter_actions(id, letter_id, user_id, action_type, comment, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.LetterID, e.UserID, e.Action, e.Comment,
		repository.JSON[Details]{V: e.Details}, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append action: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

// List returns a letter's entries by creation time in the given order.
func (r *Repository) List(ctx context.Context, letterID uuid.UUID, order Order) ([]Entry, error) {
	dir := "DESC"
	if order == Ascending {
		dir = "ASC"
	}

	q := fmt.Sprintf(`
		SELECT id, letter_id, user_id, action_type, comment, details, created_at
		FROM letter_actions
		WHERE letter_id = $1
		ORDER BY created_at %s, seq %s`, dir, dir)

	entries, err := repository.QueryMany(ctx, r.db, q, []any{letterID}, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return entries, nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var (
		e       Entry
		details repository.JSON[Details]
	)
	err := s.Scan(
		&e.ID,
		&e.LetterID,
		&e.UserID,
		&e.Action,
		&e.Comment,
		&details,
		&e.CreatedAt,
	)
	e.Details = details.V
	return e, err
}
