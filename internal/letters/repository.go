package letters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/query"
	"github.com/JaimeStill/missive/pkg/repository"
)

type letterRepo struct {
	db repository.DB
}

func (r *letterRepo) Lock(ctx context.Context, id uuid.UUID) (*Letter, error) {
	return r.find(ctx, id, true)
}

func (r *letterRepo) find(ctx context.Context, id uuid.UUID, lock bool) (*Letter, error) {
	qb := query.NewBuilder(projection)
	if lock {
		qb.ForUpdate()
	}
	q, args := qb.BuildSingle("ID", id)

	l, err := repository.QueryOne(ctx, r.db, q, args, scanLetter)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &l, nil
}

func (r *letterRepo) list(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Letter], error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count letters: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	ls, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanLetter)
	if err != nil {
		return nil, fmt.Errorf("query letters: %w", err)
	}

	result := pagination.NewPageResult(ls, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *letterRepo) Insert(ctx context.Context, l *Letter) error {
	q := `
		INSERT INTO letters(` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, q, values(l)...)
	if err != nil {
		return fmt.Errorf("insert letter: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

func (r *letterRepo) Update(ctx context.Context, l *Letter) error {
	q := `
		UPDATE letters SET
			title = $2, submitted_by = $3, workflow_status = $4, current_step_index = $5,
			next_action_by_id = $6, source = $7, working_artifact_ref = $8, final_artifact_ref = $9,
			public_link = $10, qr_artifact_ref = $11, placements = $12, created_at = $13,
			updated_at = $14, approved_at = $15
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, r.db, q, values(l)...); err != nil {
		return fmt.Errorf("update letter: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

func (r *letterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, "DELETE FROM letters WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete letter: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

const columns = `id, title, submitted_by, workflow_status, current_step_index, next_action_by_id, source, ` +
	`working_artifact_ref, final_artifact_ref, public_link, qr_artifact_ref, placements, ` +
	`created_at, updated_at, approved_at`

func values(l *Letter) []any {
	return []any{
		l.ID,
		l.Title,
		l.SubmittedBy,
		l.Status,
		l.CurrentStepIndex,
		l.NextActionByID,
		repository.JSON[SourceRecord]{V: EncodeSource(l.Source.Source)},
		l.WorkingArtifactRef,
		l.FinalArtifactRef,
		l.PublicLink,
		l.QRArtifactRef,
		repository.JSON[placement.List]{V: l.Placements},
		l.CreatedAt,
		l.UpdatedAt,
		l.ApprovedAt,
	}
}
