package render

import (
	"github.com/flosch/pongo2/v6"

	"flowcrafter/internal/fragment"
)

// Engine renders a template against named variables.
type Engine interface {
	// Render renders template, identified by name for diagnostics, with vars.
	// A nil vars map renders without variables.
	Render(name string, template fragment.Template, vars map[string]any) (string, error)
}

// PongoEngine is an [Engine] using pongo2 (Django/Liquid-style syntax):
//
//	name: CI
//	jobs:
//	{% for job in jobs %}{{ job }}{% endfor %}
//
// Output is YAML, so auto-escaping is turned off.
type PongoEngine struct{}

// NewPongoEngine returns a [PongoEngine].
func NewPongoEngine() *PongoEngine {
	return &PongoEngine{}
}

// Render implements [Engine].
func (e *PongoEngine) Render(name string, template fragment.Template, vars map[string]any) (string, error) {
	// The wrapping tags emit nothing and keep line numbers in errors intact.
	tpl, err := pongo2.FromString("{% autoescape off %}" + template.String() + "{% endautoescape %}")
	if err != nil {
		return "", err
	}

	ctx := pongo2.Context{}
	for k, v := range vars {
		ctx[k] = v
	}

	return tpl.Execute(ctx)
}
