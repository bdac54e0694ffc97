package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"flowcrafter/internal/output"
)

// testProjectRoot is the repository root used by in-memory test projects.
const testProjectRoot = "/project"

// newTestApp returns an App over an in-memory filesystem containing a Git
// repository at testProjectRoot, and the buffer that receives its output.
func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	t.Setenv("FLOWCRAFTER_CONFIG_PATH", "")

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(filepath.Join(testProjectRoot, ".git"), 0755))

	buf := &bytes.Buffer{}
	return &App{
		Fs:        fs,
		WorkDir:   testProjectRoot,
		Printer:   output.NewPrinterWithWriter(buf),
		LogOutput: &bytes.Buffer{},
	}, buf
}

// writeTemplates writes library templates, keyed by path relative to the
// library directory, under testProjectRoot/dir.
func writeTemplates(t *testing.T, fs afero.Fs, dir string, templates map[string]string) {
	t.Helper()

	for path, content := range templates {
		full := filepath.Join(testProjectRoot, dir, filepath.FromSlash(path))
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, afero.WriteFile(fs, full, []byte(content), 0644))
	}
}

// readFile returns the content of path relative to testProjectRoot.
func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, filepath.Join(testProjectRoot, filepath.FromSlash(path)))
	require.NoError(t, err)
	return string(data)
}
