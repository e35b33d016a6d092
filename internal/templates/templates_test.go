package templates_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/internal/templates"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

func leaveTemplate() *templates.Template {
	return &templates.Template{
		Name: "Leave Request",
		Sections: []templates.Section{
			{Heading: "Request", Body: "{{.employee}} requests {{.days}} days of leave starting {{.start}}."},
			{Heading: "Coverage", Body: "Coverage arranged: {{.covered}}."},
		},
		Fields: []templates.Field{
			{Name: "employee", Type: templates.FieldText, Required: true},
			{Name: "days", Type: templates.FieldNumber, Required: true},
			{Name: "start", Type: templates.FieldDate, Required: true},
			{Name: "covered", Type: templates.FieldBool},
		},
	}
}

func leaveForm() templates.FormData {
	return templates.FormData{
		"employee": templates.Text{Value: "Zoë Martín"},
		"days":     templates.Number{Value: 3},
		"start":    templates.Date{Value: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		"covered":  templates.Bool{Value: true},
	}
}

func TestFieldValueString(t *testing.T) {
	tests := []struct {
		name  string
		value templates.FieldValue
		want  string
	}{
		{"text", templates.Text{Value: "hello"}, "hello"},
		{"whole number", templates.Number{Value: 3}, "3"},
		{"fraction", templates.Number{Value: 2.5}, "2.5"},
		{"date", templates.Date{Value: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}, "March 9, 2026"},
		{"true", templates.Bool{Value: true}, "Yes"},
		{"false", templates.Bool{Value: false}, "No"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestFormDataJSON(t *testing.T) {
	t.Run("decodes by discriminant", func(t *testing.T) {
		raw := `{
			"employee": {"type": "text", "value": "Sam"},
			"days": {"type": "number", "value": 4},
			"start": {"type": "date", "value": "2026-05-01"},
			"covered": {"type": "bool", "value": false}
		}`

		var data templates.FormData
		require.NoError(t, json.Unmarshal([]byte(raw), &data))

		assert.Equal(t, templates.Text{Value: "Sam"}, data["employee"])
		assert.Equal(t, templates.Number{Value: 4}, data["days"])
		assert.Equal(t, templates.Bool{Value: false}, data["covered"])
		assert.Equal(t, "2026-05-01", data["start"].(templates.Date).Value.Format(templates.DateLayout))
	})

	t.Run("encodes dates in wire layout", func(t *testing.T) {
		data := templates.FormData{
			"start": templates.Date{Value: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		}
		out, err := json.Marshal(data)
		require.NoError(t, err)
		assert.JSONEq(t, `{"start": {"type": "date", "value": "2026-05-01"}}`, string(out))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		var data templates.FormData
		err := json.Unmarshal([]byte(`{"x": {"type": "color", "value": "red"}}`), &data)
		assert.ErrorIs(t, err, templates.ErrInvalidForm)
	})

	t.Run("rejects mistyped value", func(t *testing.T) {
		var data templates.FormData
		err := json.Unmarshal([]byte(`{"x": {"type": "number", "value": "four"}}`), &data)
		assert.ErrorIs(t, err, templates.ErrInvalidForm)
	})
}

func TestValidate(t *testing.T) {
	tmpl := leaveTemplate()

	t.Run("complete form", func(t *testing.T) {
		assert.NoError(t, tmpl.Validate(leaveForm()))
	})

	t.Run("optional field omitted", func(t *testing.T) {
		data := leaveForm()
		delete(data, "covered")
		assert.NoError(t, tmpl.Validate(data))
	})

	t.Run("required field missing", func(t *testing.T) {
		data := leaveForm()
		delete(data, "employee")
		assert.ErrorIs(t, tmpl.Validate(data), templates.ErrInvalidForm)
	})

	t.Run("wrong type", func(t *testing.T) {
		data := leaveForm()
		data["days"] = templates.Text{Value: "three"}
		assert.ErrorIs(t, tmpl.Validate(data), templates.ErrInvalidForm)
	})
}

func TestRender(t *testing.T) {
	t.Run("produces a pdf", func(t *testing.T) {
		pdf, err := templates.Render(leaveTemplate(), leaveForm())
		require.NoError(t, err)

		n, err := api.PageCount(bytes.NewReader(pdf), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("undeclared reference fails", func(t *testing.T) {
		tmpl := leaveTemplate()
		tmpl.Sections = append(tmpl.Sections, templates.Section{Body: "Approved by {{.manager}}."})

		_, err := templates.Render(tmpl, leaveForm())
		assert.ErrorIs(t, err, templates.ErrInvalidForm)
	})

	t.Run("malformed section", func(t *testing.T) {
		tmpl := leaveTemplate()
		tmpl.Sections = []templates.Section{{Body: "{{.employee"}}

		_, err := templates.Render(tmpl, leaveForm())
		assert.Error(t, err)
	})
}
