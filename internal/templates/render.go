package templates

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-pdf/fpdf"
)

const (
	margin     = 72.0
	lineHeight = 15.0
)

// Render validates data and produces a PDF of the template's sections with
// every field reference substituted.
func Render(t *Template, data FormData) ([]byte, error) {
	if err := t.Validate(data); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(data))
	for name, v := range data {
		values[name] = v.String()
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle(t.Name, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.MultiCell(0, lineHeight*1.5, tr(t.Name), "", "L", false)
	doc.Ln(lineHeight)

	for i, s := range t.Sections {
		body, err := substitute(fmt.Sprintf("section-%d", i), s.Body, values)
		if err != nil {
			return nil, err
		}

		if s.Heading != "" {
			doc.SetFont("Helvetica", "B", 12)
			doc.MultiCell(0, lineHeight, tr(s.Heading), "", "L", false)
			doc.Ln(lineHeight / 3)
		}

		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, lineHeight, tr(body), "", "L", false)
		doc.Ln(lineHeight)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func substitute(name, body string, values map[string]string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidForm, name, err)
	}
	return sb.String(), nil
}
