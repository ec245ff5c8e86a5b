package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const confirmationSubject = "Welcome! Please confirm your subscription"

// ConfirmationData is the template input for the confirmation email.
type ConfirmationData struct {
	Name             string
	ConfirmationLink string
}

// Renderer renders email bodies from embedded templates.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer creates a new renderer and parses all templates.
func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}

	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}

	return &Renderer{html: html, text: text}, nil
}

// RenderConfirmation returns subject, HTML body and plain-text body.
// HTML output is escaped by html/template.
func (r *Renderer) RenderConfirmation(data ConfirmationData) (subject, htmlBody, textBody string, err error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := r.html.ExecuteTemplate(&htmlBuf, "confirmation.html.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("execute html template: %w", err)
	}
	if err := r.text.ExecuteTemplate(&textBuf, "confirmation.txt.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("execute text template: %w", err)
	}

	return confirmationSubject, strings.TrimSpace(htmlBuf.String()), strings.TrimSpace(textBuf.String()), nil
}
