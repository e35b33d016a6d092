package letters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/internal/templates"
)

// Status is a letter's position in the approval workflow.
type Status string

// Workflow statuses. Approved and rejected are terminal; a rejected letter
// can be reopened by resubmission.
const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Terminal reports whether no further step is awaited.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Letter is a document moving through the approval workflow.
type Letter struct {
	ID                 uuid.UUID      `json:"id"`
	Title              string         `json:"title"`
	SubmittedBy        uuid.UUID      `json:"submitted_by"`
	Status             Status         `json:"workflow_status"`
	CurrentStepIndex   *int           `json:"current_step_index"`
	NextActionByID     *uuid.UUID     `json:"next_action_by_id"`
	Source             SourceDocument `json:"source"`
	WorkingArtifactRef string         `json:"working_artifact_ref"`
	FinalArtifactRef   *string        `json:"final_artifact_ref"`
	PublicLink         *string        `json:"public_link"`
	QRArtifactRef      *string        `json:"qr_artifact_ref"`
	Placements         placement.List `json:"placements"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	ApprovedAt         *time.Time     `json:"approved_at"`
}

// awaiting points the letter at the step with the given order and user.
func (l *Letter) awaiting(order int, userID uuid.UUID) {
	l.CurrentStepIndex = &order
	l.NextActionByID = &userID
}

// settle clears the awaited step.
func (l *Letter) settle(status Status) {
	l.Status = status
	l.CurrentStepIndex = nil
	l.NextActionByID = nil
}

// SourceKind discriminates letter sources.
type SourceKind string

// Source kinds.
const (
	SourceUpload   SourceKind = "upload"
	SourceTemplate SourceKind = "template"
)

// Source is the document a letter was created from. Implemented by Upload
// and FromTemplate only.
type Source interface {
	Kind() SourceKind
	source()
}

// Upload is a PDF the submitter already stored.
type Upload struct {
	StorageKey string
}

// FromTemplate is a template rendered with form data at submission.
type FromTemplate struct {
	TemplateID uuid.UUID
	FormData   templates.FormData
}

func (Upload) Kind() SourceKind       { return SourceUpload }
func (FromTemplate) Kind() SourceKind { return SourceTemplate }

func (Upload) source()       {}
func (FromTemplate) source() {}

// SourceRecord is the wire and storage shape of a Source.
type SourceRecord struct {
	Type       SourceKind         `json:"type"`
	StorageKey string             `json:"storage_key,omitempty"`
	TemplateID *uuid.UUID         `json:"template_id,omitempty"`
	FormData   templates.FormData `json:"form_data,omitempty"`
}

// DecodeSource validates a record and returns its Source.
func DecodeSource(r SourceRecord) (Source, error) {
	switch r.Type {
	case SourceUpload:
		if r.StorageKey == "" {
			return nil, fmt.Errorf("%w: upload source requires storage_key", ErrValidation)
		}
		return Upload{StorageKey: r.StorageKey}, nil
	case SourceTemplate:
		if r.TemplateID == nil || *r.TemplateID == uuid.Nil {
			return nil, fmt.Errorf("%w: template source requires template_id", ErrValidation)
		}
		return FromTemplate{TemplateID: *r.TemplateID, FormData: r.FormData}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", ErrValidation, r.Type)
	}
}

// EncodeSource returns the record form of s.
func EncodeSource(s Source) SourceRecord {
	switch v := s.(type) {
	case Upload:
		return SourceRecord{Type: SourceUpload, StorageKey: v.StorageKey}
	case FromTemplate:
		id := v.TemplateID
		return SourceRecord{Type: SourceTemplate, TemplateID: &id, FormData: v.FormData}
	default:
		return SourceRecord{}
	}
}

// SourceDocument carries a Source through JSON.
type SourceDocument struct {
	Source Source
}

func (d SourceDocument) MarshalJSON() ([]byte, error) {
	if d.Source == nil {
		return []byte("null"), nil
	}
	return json.Marshal(EncodeSource(d.Source))
}

func (d *SourceDocument) UnmarshalJSON(data []byte) error {
	var r SourceRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	s, err := DecodeSource(r)
	if err != nil {
		return err
	}
	d.Source = s
	return nil
}
