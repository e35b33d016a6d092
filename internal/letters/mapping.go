package letters

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/pkg/query"
	"github.com/JaimeStill/missive/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "letters", "l").
	Project("id", "ID").
	Project("title", "Title").
	Project("submitted_by", "SubmittedBy").
	Project("workflow_status", "Status").
	Project("current_step_index", "CurrentStepIndex").
	Project("next_action_by_id", "NextActionByID").
	Project("source", "Source").
	Project("working_artifact_ref", "WorkingArtifactRef").
	Project("final_artifact_ref", "FinalArtifactRef").
	Project("public_link", "PublicLink").
	Project("qr_artifact_ref", "QRArtifactRef").
	Project("placements", "Placements").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("approved_at", "ApprovedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for letter queries.
// Nil fields are ignored. Participant matches letters on which the user holds
// any reviewer or approver assignment. Viewer also admits letters the user
// submitted; it is set by the server, never decoded from a request.
type Filters struct {
	Status       *Status    `json:"status,omitempty"`
	SubmittedBy  *uuid.UUID `json:"submitted_by,omitempty"`
	NextActionBy *uuid.UUID `json:"next_action_by,omitempty"`
	Participant  *uuid.UUID `json:"participant,omitempty"`
	Viewer       *uuid.UUID `json:"-"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Status", f.Status).
		WhereEquals("SubmittedBy", f.SubmittedBy).
		WhereEquals("NextActionByID", f.NextActionBy)

	if f.Participant != nil {
		b.WhereRaw(
			fmt.Sprintf(
				"EXISTS (SELECT 1 FROM public.reviewer_assignments ra WHERE ra.letter_id = %s AND ra.user_id = $%%d)",
				projection.Column("ID"),
			),
			*f.Participant,
		)
	}

	if f.Viewer != nil {
		b.WhereRaw(
			fmt.Sprintf(
				"(%s = $%%d OR EXISTS (SELECT 1 FROM public.reviewer_assignments ra WHERE ra.letter_id = %s AND ra.user_id = $%%d))",
				projection.Column("SubmittedBy"),
				projection.Column("ID"),
			),
			*f.Viewer,
			*f.Viewer,
		)
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed ids are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		st := Status(s)
		f.Status = &st
	}

	f.SubmittedBy = uuidParam(values, "submitted_by")
	f.NextActionBy = uuidParam(values, "next_action_by")
	f.Participant = uuidParam(values, "participant")

	return f
}

func uuidParam(values url.Values, name string) *uuid.UUID {
	s := values.Get(name)
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func scanLetter(s repository.Scanner) (Letter, error) {
	var (
		l          Letter
		source     repository.JSON[SourceRecord]
		placements repository.JSON[placement.List]
	)
	err := s.Scan(
		&l.ID,
		&l.Title,
		&l.SubmittedBy,
		&l.Status,
		&l.CurrentStepIndex,
		&l.NextActionByID,
		&source,
		&l.WorkingArtifactRef,
		&l.FinalArtifactRef,
		&l.PublicLink,
		&l.QRArtifactRef,
		&placements,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.ApprovedAt,
	)
	if err != nil {
		return l, err
	}

	l.Placements = placements.V
	if src, derr := DecodeSource(source.V); derr == nil {
		l.Source = SourceDocument{Source: src}
	}
	return l, nil
}
