package templates

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template errors.
var (
	ErrNotFound    = errors.New("template not found")
	ErrDuplicate   = errors.New("template already exists")
	ErrInvalidForm = errors.New("invalid form data")
)

// Section is one titled block of template text. Body is a text/template
// referencing form fields as {{.field_name}}.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Field declares a form field the template expects.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Template is a reusable letter layout.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Sections  []Section `json:"sections"`
	Fields    []Field   `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks data against the declared fields: required fields must be
// present and every declared field must carry its declared type.
func (t *Template) Validate(data FormData) error {
	for _, f := range t.Fields {
		v, ok := data[f.Name]
		if !ok {
			if f.Required {
				return fmt.Errorf("%w: field %q is required", ErrInvalidForm, f.Name)
			}
			continue
		}
		if v.Type() != f.Type {
			return fmt.Errorf("%w: field %q must be %s, got %s", ErrInvalidForm, f.Name, f.Type, v.Type())
		}
	}
	return nil
}
