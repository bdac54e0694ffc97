// Package project locates the Git repository flowcrafter operates on.
package project

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotRepository is returned when no enclosing Git repository exists.
var ErrNotRepository = errors.New("flowcrafter must be run inside a Git repository")

// Project is a Git repository on disk.
type Project struct {
	root string
}

// Find walks from dir up to the filesystem root and returns the first
// directory containing a .git entry.
func Find(fs afero.Fs, dir string) (*Project, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		exists, err := afero.Exists(fs, filepath.Join(current, ".git"))
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", current, err)
		}
		if exists {
			return &Project{root: current}, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNotRepository
		}
		current = parent
	}
}

// Root returns the repository root.
func (p *Project) Root() string {
	return p.root
}

// WorkflowsDir returns the directory GitHub Actions reads workflows from.
func (p *Project) WorkflowsDir() string {
	return filepath.Join(p.root, ".github", "workflows")
}
