package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowcrafter/internal/config"
)

var libraryTemplates = map[string]string{
	"rust/workflow.yml": "---\nname: Rust\n\n\"on\": [push]\n",
	"rust/lint.yml":     "lint:\n  runs-on: ubuntu-latest\n",
	"rust/test.yml":     "test:\n  runs-on: ubuntu-latest\n",
	"docs/workflow.yml": "name: Docs\n",
	"docs/build.yml":    "build:\n  runs-on: ubuntu-latest\n",
	"tpl/workflow.yml":  "name: Tpl\njobs:\n{% for job in jobs %}{{ job }}{% endfor %}",
	"tpl/a.yml":         "  a:\n    runs-on: ubuntu-latest\n",
}

const rustWorkflow = "---\nname: Rust\n\n\"on\": [push]\n\njobs:\n  lint:\n    runs-on: ubuntu-latest\n\n  test:\n    runs-on: ubuntu-latest\n"

func run(t *testing.T, app *App, args ...string) ExecuteResult {
	t.Helper()
	return Run(context.Background(), app, args)
}

// newInitializedApp returns an App whose project uses a local library in
// templates/ filled with libraryTemplates.
func newInitializedApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()

	app, buf := newTestApp(t)
	writeTemplates(t, app.Fs, "templates", libraryTemplates)

	result := run(t, app, "init", "--path", "templates")
	require.Equal(t, 0, result.ExitCode, buf.String())
	buf.Reset()

	return app, buf
}

func readConfig(t *testing.T, fs afero.Fs) *config.Config {
	t.Helper()

	cfg, err := config.ReadFile(fs, config.Path(testProjectRoot))
	require.NoError(t, err)
	return cfg
}

func TestInitCommand_LocalLibrary(t *testing.T) {
	app, buf := newTestApp(t)

	result := run(t, app, "init", "--path", "templates")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Contains(t, buf.String(), "Initialized flowcrafter with path templates in .github/flowcrafter.yml")

	cfg := readConfig(t, app.Fs)
	require.NotNil(t, cfg.Library.Local)
	assert.Nil(t, cfg.Library.GitHub)
	assert.Equal(t, "templates", cfg.Library.Local.Path)
	assert.Empty(t, cfg.Workflows)
}

func TestInitCommand_GitHubLibrary(t *testing.T) {
	app, buf := newTestApp(t)

	result := run(t, app, "init", "--repository", "jdno/workflows", "--instance", "https://github.example.com/api/v3")

	require.Equal(t, 0, result.ExitCode, buf.String())
	cfg := readConfig(t, app.Fs)
	require.NotNil(t, cfg.Library.GitHub)
	assert.Equal(t, config.GitHubConfig{
		Instance:   "https://github.example.com/api/v3",
		Owner:      "jdno",
		Repository: "workflows",
	}, *cfg.Library.GitHub)
}

func TestInitCommand_Errors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantOutput string
	}{
		{
			name:       "malformed repository",
			args:       []string{"init", "--repository", "jdno"},
			wantOutput: "repository must be provided in the format 'owner/repository'",
		},
		{
			name:       "too many repository parts",
			args:       []string{"init", "--repository", "jdno/flowcrafter/extra"},
			wantOutput: "repository must be provided in the format 'owner/repository'",
		},
		{
			name:       "invalid instance",
			args:       []string{"init", "--repository", "jdno/flowcrafter", "--instance", "not a url"},
			wantOutput: "invalid instance URL",
		},
		{
			name:       "repository and path",
			args:       []string{"init", "--repository", "jdno/flowcrafter", "--path", "templates"},
			wantOutput: "none of the others can be",
		},
		{
			name:       "no library",
			args:       []string{"init"},
			wantOutput: "at least one of the flags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, buf := newTestApp(t)

			result := run(t, app, tt.args...)

			assert.Equal(t, 1, result.ExitCode)
			require.Error(t, result.Err)
			assert.Contains(t, buf.String(), tt.wantOutput)

			exists, err := afero.Exists(app.Fs, config.Path(testProjectRoot))
			require.NoError(t, err)
			assert.False(t, exists, "no configuration should be written")
		})
	}
}

func TestInitCommand_OutsideRepository(t *testing.T) {
	app, buf := newTestApp(t)
	app.WorkDir = "/elsewhere"

	result := run(t, app, "init", "--path", "templates")

	assert.Equal(t, 1, result.ExitCode)
	code, ok := IsExitError(result.Err)
	assert.True(t, ok, "error should be an ExitError")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "flowcrafter must be run inside a Git repository")
}

func TestInitCommand_FromSubdirectory(t *testing.T) {
	app, buf := newTestApp(t)
	require.NoError(t, app.Fs.MkdirAll("/project/src/nested", 0755))
	app.WorkDir = "/project/src/nested"

	result := run(t, app, "init", "--path", "templates")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, "templates", readConfig(t, app.Fs).Library.Local.Path)
}

func TestInitCommand_KeepsRegistry(t *testing.T) {
	app, buf := newInitializedApp(t)
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint").ExitCode, buf.String())

	result := run(t, app, "init", "--repository", "jdno/workflows")

	require.Equal(t, 0, result.ExitCode, buf.String())
	cfg := readConfig(t, app.Fs)
	require.NotNil(t, cfg.Library.GitHub)
	assert.Nil(t, cfg.Library.Local)
	assert.Equal(t, []config.WorkflowConfig{{Name: "rust", Jobs: []string{"lint"}}}, cfg.Workflows)
}

func TestCreateCommand(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test")

	require.Equal(t, 0, result.ExitCode, buf.String())
	if diff := cmp.Diff(rustWorkflow, readFile(t, app.Fs, ".github/workflows/rust.yml")); diff != "" {
		t.Errorf("workflow mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, buf.String(), "Created .github/workflows/rust.yml")
	assert.Equal(t, []config.WorkflowConfig{{Name: "rust", Jobs: []string{"lint", "test"}}}, readConfig(t, app.Fs).Workflows)
}

func TestCreateCommand_RepeatedJobsFlag(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "create", "-w", "rust", "-j", "lint", "-j", "test")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, rustWorkflow, readFile(t, app.Fs, ".github/workflows/rust.yml"))
}

func TestCreateCommand_WithoutJobs(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "create", "--workflow", "docs")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, "name: Docs\n\njobs:\n", readFile(t, app.Fs, ".github/workflows/docs.yml"))
	assert.Equal(t, []config.WorkflowConfig{{Name: "docs", Jobs: []string{}}}, readConfig(t, app.Fs).Workflows)
}

func TestCreateCommand_ReplacesRegistryEntry(t *testing.T) {
	app, buf := newInitializedApp(t)

	require.Equal(t, 0, run(t, app, "create", "--workflow", "docs", "--jobs", "build").ExitCode, buf.String())
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint").ExitCode, buf.String())
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test").ExitCode, buf.String())

	assert.Equal(t, []config.WorkflowConfig{
		{Name: "docs", Jobs: []string{"build"}},
		{Name: "rust", Jobs: []string{"lint", "test"}},
	}, readConfig(t, app.Fs).Workflows)
}

func TestCreateCommand_Stdout(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test", "--stdout")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, rustWorkflow, buf.String())

	exists, err := afero.Exists(app.Fs, "/project/.github/workflows/rust.yml")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, readConfig(t, app.Fs).Workflows)
}

func TestCreateCommand_TemplateStrategy(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "create", "--workflow", "tpl", "--jobs", "a", "--strategy", "template")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, "name: Tpl\njobs:\n  a:\n    runs-on: ubuntu-latest\n", readFile(t, app.Fs, ".github/workflows/tpl.yml"))
}

func TestCreateCommand_Errors(t *testing.T) {
	tests := []struct {
		name       string
		templates  map[string]string
		args       []string
		wantOutput string
	}{
		{
			name:       "missing job",
			args:       []string{"create", "--workflow", "rust", "--jobs", "lint,missing"},
			wantOutput: "failed to find 'missing.yml' in path /project/templates",
		},
		{
			name:       "missing workflow",
			args:       []string{"create", "--workflow", "python"},
			wantOutput: "failed to find 'workflow.yml' in path /project/templates",
		},
		{
			name:       "unknown strategy",
			args:       []string{"create", "--workflow", "rust", "--strategy", "bogus"},
			wantOutput: "unknown render strategy 'bogus'",
		},
		{
			name:       "template syntax error",
			templates:  map[string]string{"rust/workflow.yml": "{% for job in jobs %}"},
			args:       []string{"create", "--workflow", "rust", "--jobs", "lint", "--strategy", "template"},
			wantOutput: "failed to render 'rust'",
		},
		{
			name:       "missing workflow flag",
			args:       []string{"create", "--jobs", "lint"},
			wantOutput: `required flag(s) "workflow" not set`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, buf := newInitializedApp(t)
			writeTemplates(t, app.Fs, "templates", tt.templates)

			result := run(t, app, tt.args...)

			assert.Equal(t, 1, result.ExitCode)
			assert.Contains(t, buf.String(), tt.wantOutput)

			exists, err := afero.Exists(app.Fs, "/project/.github/workflows/rust.yml")
			require.NoError(t, err)
			assert.False(t, exists, "no workflow should be written")
			assert.Empty(t, readConfig(t, app.Fs).Workflows, "registry should be unchanged")
		})
	}
}

// writeOutsideLibrary places templates next to the library that traversing
// names would reach.
func writeOutsideLibrary(t *testing.T, fs afero.Fs) {
	t.Helper()

	writeTemplates(t, fs, "", map[string]string{
		"outside/workflow.yml": "name: Outside\n",
		"secret.yml":           "leaked: true\n",
	})
}

func TestCreateCommand_RejectsTraversingNames(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantOutput string
	}{
		{
			name:       "workflow to stdout",
			args:       []string{"create", "--workflow", "../outside", "--stdout"},
			wantOutput: "invalid workflow name '../outside'",
		},
		{
			name:       "job to stdout",
			args:       []string{"create", "--workflow", "rust", "--jobs", "../../secret", "--stdout"},
			wantOutput: "invalid job name '../../secret'",
		},
		{
			name:       "job to file",
			args:       []string{"create", "--workflow", "rust", "--jobs", "lint,../../secret"},
			wantOutput: "invalid job name '../../secret'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, buf := newInitializedApp(t)
			writeOutsideLibrary(t, app.Fs)

			result := run(t, app, tt.args...)

			assert.Equal(t, 1, result.ExitCode)
			assert.Contains(t, buf.String(), tt.wantOutput)
			assert.NotContains(t, buf.String(), "Outside")
			assert.NotContains(t, buf.String(), "leaked")

			exists, err := afero.Exists(app.Fs, "/project/.github/workflows/rust.yml")
			require.NoError(t, err)
			assert.False(t, exists, "no workflow should be written")
			assert.Empty(t, readConfig(t, app.Fs).Workflows, "registry should be unchanged")
		})
	}
}

func TestUpdateCommand_RejectsTraversingRegistryEntry(t *testing.T) {
	app, buf := newInitializedApp(t)
	writeOutsideLibrary(t, app.Fs)

	cfg := readConfig(t, app.Fs)
	cfg.Upsert(config.WorkflowConfig{Name: "rust", Jobs: []string{"../../secret"}})
	require.NoError(t, config.Save(app.Fs, config.Path(testProjectRoot), cfg))

	result := run(t, app, "update", "--stdout")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "invalid job name '../../secret'")
	assert.NotContains(t, buf.String(), "leaked")
}

func TestCreateCommand_NotInitialized(t *testing.T) {
	app, buf := newTestApp(t)

	result := run(t, app, "create", "--workflow", "rust")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "flowcrafter is not initialized")
}

func TestCreateCommand_ConfigFlag(t *testing.T) {
	app, buf := newTestApp(t)
	writeTemplates(t, app.Fs, "templates", libraryTemplates)

	require.Equal(t, 0, run(t, app, "init", "--config", "/project/ci/flowcrafter.yml", "--path", "templates").ExitCode, buf.String())
	result := run(t, app, "--config", "/project/ci/flowcrafter.yml", "create", "--workflow", "docs")

	require.Equal(t, 0, result.ExitCode, buf.String())
	cfg, err := config.ReadFile(app.Fs, "/project/ci/flowcrafter.yml")
	require.NoError(t, err)
	assert.Equal(t, []config.WorkflowConfig{{Name: "docs", Jobs: []string{}}}, cfg.Workflows)

	exists, err := afero.Exists(app.Fs, config.Path(testProjectRoot))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateCommand_VerboseLogging(t *testing.T) {
	app, buf := newInitializedApp(t)
	logs := &bytes.Buffer{}
	app.LogOutput = logs

	result := run(t, app, "--verbose", "create", "--workflow", "rust", "--jobs", "lint")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Contains(t, logs.String(), "resolving job")
	assert.NotContains(t, buf.String(), "resolving job")
}

func TestUpdateCommand(t *testing.T) {
	app, buf := newInitializedApp(t)
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test").ExitCode, buf.String())
	require.Equal(t, 0, run(t, app, "create", "--workflow", "docs", "--jobs", "build").ExitCode, buf.String())
	buf.Reset()

	writeTemplates(t, app.Fs, "templates", map[string]string{"rust/lint.yml": "lint:\n  runs-on: macos-latest\n"})

	result := run(t, app, "update")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Contains(t, readFile(t, app.Fs, ".github/workflows/rust.yml"), "  lint:\n    runs-on: macos-latest\n")
	assert.Equal(t, "name: Docs\n\njobs:\n  build:\n    runs-on: ubuntu-latest\n", readFile(t, app.Fs, ".github/workflows/docs.yml"))

	out := buf.String()
	assert.Contains(t, out, "[1/2] rust")
	assert.Contains(t, out, "[2/2] docs")
	assert.Less(t, strings.Index(out, "[1/2] rust"), strings.Index(out, "[2/2] docs"))
	assert.Contains(t, out, "Updated 2 workflows")
}

func TestUpdateCommand_Stdout(t *testing.T) {
	app, buf := newInitializedApp(t)
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test").ExitCode, buf.String())
	require.Equal(t, 0, run(t, app, "create", "--workflow", "docs").ExitCode, buf.String())
	buf.Reset()

	result := run(t, app, "update", "--stdout")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, rustWorkflow+"name: Docs\n\njobs:\n", buf.String())
}

func TestUpdateCommand_EmptyRegistry(t *testing.T) {
	app, buf := newInitializedApp(t)

	result := run(t, app, "update")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Contains(t, buf.String(), "No workflows to update")
}

func TestUpdateCommand_Failure(t *testing.T) {
	app, buf := newInitializedApp(t)
	require.Equal(t, 0, run(t, app, "create", "--workflow", "rust", "--jobs", "lint").ExitCode, buf.String())
	require.NoError(t, app.Fs.Remove("/project/templates/rust/lint.yml"))
	buf.Reset()

	result := run(t, app, "update")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "failed to update workflow 'rust': failed to find 'lint.yml'")
}

func TestGitHubLibrary_EndToEnd(t *testing.T) {
	templates := map[string]string{
		"rust/workflow.yml": "---\nname: Rust\n\n\"on\": [push]\n",
		"rust/lint.yml":     "lint:\n  runs-on: ubuntu-latest\n",
		"rust/test.yml":     "test:\n  runs-on: ubuntu-latest\n",
	}

	var (
		mu   sync.Mutex
		auth []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/repos/jdno/workflows/contents/")
		content, ok := templates[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}

		// GitHub wraps base64 content at 60 characters.
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		var wrapped strings.Builder
		for i := 0; i < len(encoded); i += 60 {
			wrapped.WriteString(encoded[i:min(i+60, len(encoded))])
			wrapped.WriteString("\n")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"encoding": "base64",
			"path":     path,
			"content":  wrapped.String(),
		})
	}))
	t.Cleanup(server.Close)

	app, buf := newTestApp(t)
	app.HTTPClient = server.Client()
	app.Token = "secret"

	require.Equal(t, 0, run(t, app, "init", "--repository", "jdno/workflows", "--instance", server.URL).ExitCode, buf.String())
	result := run(t, app, "create", "--workflow", "rust", "--jobs", "lint,test")

	require.Equal(t, 0, result.ExitCode, buf.String())
	assert.Equal(t, rustWorkflow, readFile(t, app.Fs, ".github/workflows/rust.yml"))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, auth, 3)
	for _, header := range auth {
		assert.Equal(t, "Bearer secret", header)
	}
}

func TestGitHubLibrary_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/jdno/workflows/contents/rust/workflow.yml" {
			_, _ = w.Write([]byte(`{"encoding":"base64","content":"bmFtZTogUnVzdAo="}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	t.Cleanup(server.Close)

	app, buf := newTestApp(t)
	app.HTTPClient = server.Client()
	require.Equal(t, 0, run(t, app, "init", "--repository", "jdno/workflows", "--instance", server.URL).ExitCode, buf.String())
	buf.Reset()

	result := run(t, app, "create", "--workflow", "rust", "--jobs", "missing")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, buf.String(), "failed to find 'rust/missing.yml' in repository jdno/workflows")
}

func TestIsExitError(t *testing.T) {
	code, ok := IsExitError(NewExitError(3))
	assert.True(t, ok)
	assert.Equal(t, 3, code)

	_, ok = IsExitError(assert.AnError)
	assert.False(t, ok)

	_, ok = IsExitError(nil)
	assert.False(t, ok)

	assert.Equal(t, "exit status 3", NewExitError(3).Error())
}
