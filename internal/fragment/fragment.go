// Package fragment defines the values exchanged between fragment sources and
// the composer.
//
// A fragment is a named template body pulled from a library of reusable CI
// snippets. Each library holds one directory per workflow; the directory
// contains the workflow template itself (workflow.yml) and one file per job
// that can be merged into it.
//
// Key types:
//   - [Fragment] is an immutable name plus [Template] pair
//   - [Template] is the raw text of a fragment
//   - [Workflow] is the composed output document
//   - [Source] resolves fragments from a backend (GitHub or a local directory)
//   - [Error] is the single failure type shared by sources and the composer
package fragment

import "fmt"

// Template is the raw body of a fragment.
//
// The text is kept byte-for-byte as it was read from the backend. Equality is
// structural, so two templates with the same content compare equal.
type Template string

// String returns the template text.
func (t Template) String() string {
	return string(t)
}

// Workflow is the final document produced by composing fragments.
//
// The engine treats it as opaque text once produced; callers persist it
// (typically to .github/workflows/<name>.yml) or print it.
type Workflow string

// String returns the workflow text.
func (w Workflow) String() string {
	return string(w)
}

// Fragment is a named template resolved from a [Source].
//
// Fragments are immutable: the fields are unexported and only readable through
// accessors. Use [New] or [Builder] to construct one; both refuse to produce a
// fragment without a name.
type Fragment struct {
	name     string
	template Template
}

// New creates a [Fragment] with the given name and template.
//
// Returns an error if name is empty.
func New(name string, template Template) (Fragment, error) {
	return NewBuilder().Name(name).Template(template).Build()
}

// Name returns the logical name of the fragment (workflow or job name).
func (f Fragment) Name() string {
	return f.name
}

// Template returns the raw template of the fragment.
func (f Fragment) Template() Template {
	return f.template
}

// String returns the fragment name.
func (f Fragment) String() string {
	return f.name
}

// Builder assembles a [Fragment] field by field.
//
// Sources use the builder so that a missing field surfaces as an error from
// [Builder.Build] instead of a half-initialized fragment.
type Builder struct {
	name        string
	template    Template
	hasName     bool
	hasTemplate bool
}

// NewBuilder returns an empty [Builder].
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the fragment name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	b.hasName = name != ""
	return b
}

// Template sets the fragment template. An empty template is valid.
func (b *Builder) Template(template Template) *Builder {
	b.template = template
	b.hasTemplate = true
	return b
}

// Build returns the [Fragment] or an error naming the first missing field.
func (b *Builder) Build() (Fragment, error) {
	if !b.hasName {
		return Fragment{}, fmt.Errorf("missing field 'name'")
	}
	if !b.hasTemplate {
		return Fragment{}, fmt.Errorf("missing field 'template'")
	}
	return Fragment{name: b.name, template: b.template}, nil
}
