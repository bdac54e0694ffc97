// Package local implements a fragment source backed by a directory tree.
//
// The directory mirrors the layout of a GitHub library: one subdirectory per
// workflow holding workflow.yml and one <job>.yml per job.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"flowcrafter/internal/fragment"
)

// Library resolves fragments from files under a root directory.
type Library struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

// Option configures a [Library].
type Option func(*Library)

// WithFs replaces the filesystem, which defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *Library) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a [Library] rooted at path. A relative path is resolved against
// projectRoot; an absolute path is used as-is.
func New(projectRoot, path string, opts ...Option) (*Library, error) {
	if path == "" {
		return nil, fragment.ConfigurationFailure("missing field 'path'")
	}

	root := path
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectRoot, path)
	}

	l := &Library{
		fs:     afero.NewOsFs(),
		root:   root,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the resolved library directory.
func (l *Library) Root() string {
	return l.root
}

// String implements [fragment.Source].
func (l *Library) String() string {
	return fmt.Sprintf("path %s", l.root)
}

// Workflow implements [fragment.Source].
func (l *Library) Workflow(ctx context.Context, name string) (fragment.Fragment, error) {
	return l.load(ctx, name, filepath.Join(l.root, filepath.FromSlash(fragment.WorkflowPath(name))))
}

// Job implements [fragment.Source].
func (l *Library) Job(ctx context.Context, workflow, name string) (fragment.Fragment, error) {
	return l.load(ctx, name, filepath.Join(l.root, filepath.FromSlash(fragment.JobPath(workflow, name))))
}

func (l *Library) load(ctx context.Context, name, path string) (fragment.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return fragment.Fragment{}, fragment.TransportFailure(filepath.Base(path), l.String(), err)
	}

	template, err := l.readTemplate(path)
	if err != nil {
		return fragment.Fragment{}, err
	}

	return fragment.NewBuilder().Name(name).Template(template).Build()
}

func (l *Library) readTemplate(path string) (fragment.Template, error) {
	base := filepath.Base(path)

	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return "", fragment.TransportFailure(base, l.String(), err)
	}
	if !exists {
		return "", fragment.NotFound(base, l.String())
	}

	l.logger.Debug("reading fragment", zap.String("path", path))

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return "", fragment.TransportFailure(base, l.String(), err)
	}
	if !utf8.Valid(data) {
		return "", fragment.DecodeFailure(base, l.String(), fmt.Errorf("'%s' is not valid UTF-8", path))
	}

	return fragment.Template(data), nil
}
