package workflow

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"flowcrafter/internal/fragment"
)

// Extension is the file extension of generated workflows.
const Extension = ".yml"

// FileWriter writes workflows to <dir>/<name>.yml.
type FileWriter struct {
	fs  afero.Fs
	dir string
}

// NewFileWriter creates a [FileWriter] that writes into dir, usually
// [project.Project.WorkflowsDir].
func NewFileWriter(fs afero.Fs, dir string) *FileWriter {
	return &FileWriter{fs: fs, dir: dir}
}

// Path returns the file a workflow named name is written to.
func (w *FileWriter) Path(name string) string {
	return filepath.Join(w.dir, name+Extension)
}

// Write writes workflow atomically: the text goes to a temporary file that is
// then renamed over the target.
func (w *FileWriter) Write(name string, workflow fragment.Workflow) (string, error) {
	if err := fragment.ValidateName("workflow", name); err != nil {
		return "", err
	}

	fullPath := w.Path(name)
	if err := w.fs.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create workflows directory: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	if err := afero.WriteFile(w.fs, tmpPath, []byte(workflow), 0644); err != nil {
		return "", fmt.Errorf("failed to write workflow: %w", err)
	}

	if err := w.fs.Rename(tmpPath, fullPath); err != nil {
		err = multierr.Append(err, w.fs.Remove(tmpPath))
		return "", fmt.Errorf("failed to write workflow: %w", err)
	}

	return fullPath, nil
}
