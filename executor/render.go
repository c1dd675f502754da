package executor

import (
	"bytes"
	"fmt"
	"text/template"

	"al.essio.dev/pkg/shellescape"

	"github.com/perfgo/benchcamp/model"
)

// Renderer produces the configuration a record's workload runs with, plus
// any extra files the configuration refers to.
type Renderer interface {
	RenderConfig(r model.Record) (files []string, text string, err error)
}

// TemplateRenderer renders a text/template with the record's fields as data.
// Files lists extra files to ship with every configuration.
type TemplateRenderer struct {
	tmpl  *template.Template
	files []string
}

// NewTemplateRenderer parses text. Missing fields are an error at render
// time.
func NewTemplateRenderer(name, text string, files ...string) (*TemplateRenderer, error) {
	tmpl, err := template.New(name).Funcs(TemplateFuncs()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &TemplateRenderer{tmpl: tmpl, files: files}, nil
}

func (t *TemplateRenderer) RenderConfig(r model.Record) ([]string, string, error) {
	text, err := execute(t.tmpl, r.Map())
	if err != nil {
		return nil, "", fmt.Errorf("failed to render config for %s: %w", r.Identity(), err)
	}
	return append([]string(nil), t.files...), text, nil
}

// TemplateFuncs are the template functions available to configuration and command
// templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"quote": func(v any) string { return shellescape.Quote(fmt.Sprint(v)) },
	}
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
