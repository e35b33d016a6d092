package letters

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/internal/reviewers"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/repository"
)

// Store runs units of work and serves read-only letter queries.
type Store interface {
	// Do runs fn in one transaction. Every write made through the unit of
	// work commits when fn returns nil and is discarded otherwise.
	Do(ctx context.Context, fn func(UnitOfWork) error) error
	Find(ctx context.Context, id uuid.UUID) (*Letter, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Letter], error)
}

// UnitOfWork exposes the repositories bound to one transaction.
type UnitOfWork interface {
	Letters() LetterRepository
	Assignments() AssignmentRepository
	Actions() ActionRepository
}

// LetterRepository persists letters.
type LetterRepository interface {
	// Lock reads a letter and holds it exclusively until the unit of work ends.
	Lock(ctx context.Context, id uuid.UUID) (*Letter, error)
	Insert(ctx context.Context, l *Letter) error
	Update(ctx context.Context, l *Letter) error
	// Delete removes a letter together with its assignments and actions.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssignmentRepository persists reviewer assignments.
type AssignmentRepository interface {
	ListByLetter(ctx context.Context, letterID uuid.UUID) ([]reviewers.Assignment, error)
	Insert(ctx context.Context, as []reviewers.Assignment) error
	Update(ctx context.Context, a reviewers.Assignment) error
}

// ActionRepository appends and reads the audit log.
type ActionRepository interface {
	Append(ctx context.Context, e audit.Entry) error
	List(ctx context.Context, letterID uuid.UUID, order audit.Order) ([]audit.Entry, error)
}

type sqlStore struct {
	db      *sql.DB
	letters *letterRepo
}

// NewStore creates a Postgres-backed store.
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, letters: &letterRepo{db: db}}
}

func (s *sqlStore) Do(ctx context.Context, fn func(UnitOfWork) error) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, fn(&sqlUnit{
			letters:     &letterRepo{db: tx},
			assignments: reviewers.NewRepository(tx),
			actions:     audit.NewRepository(tx),
		})
	})
	return err
}

func (s *sqlStore) Find(ctx context.Context, id uuid.UUID) (*Letter, error) {
	return s.letters.find(ctx, id, false)
}

func (s *sqlStore) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Letter], error) {
	return s.letters.list(ctx, page, filters)
}

type sqlUnit struct {
	letters     *letterRepo
	assignments *reviewers.Repository
	actions     *audit.Repository
}

func (u *sqlUnit) Letters() LetterRepository         { return u.letters }
func (u *sqlUnit) Assignments() AssignmentRepository { return u.assignments }
func (u *sqlUnit) Actions() ActionRepository         { return u.actions }
