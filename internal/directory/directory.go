// Package directory resolves user ids to display details. It is read-only;
// users are managed outside this service.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/pkg/query"
	"github.com/JaimeStill/missive/pkg/repository"
)

// Directory errors.
var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

// User is the directory view of an identity.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

// System looks up users.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*User, error)
}

var projection = query.
	NewProjectionMap("public", "users", "u").
	Project("id", "ID").
	Project("display_name", "DisplayName").
	Project("email", "Email")

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a directory backed by the users table.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "directory"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &u, nil
}

// Resolve looks up each distinct id once. Ids that cannot be resolved are
// returned with only ID set.
func Resolve(ctx context.Context, sys System, ids ...uuid.UUID) map[uuid.UUID]User {
	out := make(map[uuid.UUID]User, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		u, err := sys.Find(ctx, id)
		if err != nil {
			out[id] = User{ID: id}
			continue
		}
		out[id] = *u
	}
	return out
}

func scanUser(s repository.Scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.DisplayName, &u.Email)
	return u, err
}
