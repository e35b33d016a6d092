// Package templates turns stored letter templates and typed form data into
// source PDFs.
package templates

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/pkg/query"
	"github.com/JaimeStill/missive/pkg/repository"
)

// System loads and renders templates. Templates are managed outside this
// service; the store is read-only.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*Template, error)
	Render(ctx context.Context, id uuid.UUID, data FormData) ([]byte, error)
}

var projection = query.
	NewProjectionMap("public", "templates", "t").
	Project("id", "ID").
	Project("name", "Name").
	Project("sections", "Sections").
	Project("fields", "Fields").
	Project("created_at", "CreatedAt")

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a template system backed by the templates table.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "templates"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Template, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTemplate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) Render(ctx context.Context, id uuid.UUID, data FormData) ([]byte, error) {
	t, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	pdf, err := Render(t, data)
	if err != nil {
		return nil, err
	}

	r.logger.Info("template rendered", "id", id, "bytes", len(pdf))
	return pdf, nil
}

func scanTemplate(s repository.Scanner) (Template, error) {
	var (
		t        Template
		sections repository.JSON[[]Section]
		fields   repository.JSON[[]Field]
	)
	err := s.Scan(&t.ID, &t.Name, &sections, &fields, &t.CreatedAt)
	t.Sections = sections.V
	t.Fields = fields.V
	return t, err
}
