// Package cli implements the flowcrafter command-line interface.
//
// Commands are built with Cobra and receive their dependencies through [App],
// which keeps them testable without touching the real filesystem or network.
//
// Key types:
//   - [App] is the dependency container shared by all commands
//   - [ExitError] signals a non-zero exit code without calling os.Exit
//   - [ExecuteResult] is the outcome of [Run]
//
// Commands:
//   - init configures the fragment library
//   - create composes a workflow and records it in the registry
//   - update regenerates every workflow in the registry
package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowcrafter/internal/config"
	"flowcrafter/internal/fragment"
	"flowcrafter/internal/library"
	"flowcrafter/internal/logging"
	"flowcrafter/internal/output"
	"flowcrafter/internal/project"
	"flowcrafter/internal/render"
	"flowcrafter/internal/workflow"
)

// App holds the dependencies of all commands.
//
// Use [NewApp] for production defaults; tests construct App directly with an
// in-memory filesystem and a buffer-backed printer.
type App struct {
	// Fs is used for every file access.
	Fs afero.Fs

	// WorkDir is where the search for the Git repository starts.
	WorkDir string

	// Printer receives user-facing messages and documents.
	Printer *output.Printer

	// LogOutput receives diagnostic logs. Defaults to stderr.
	LogOutput io.Writer

	// HTTPClient is used to reach GitHub. Nil selects http.DefaultClient.
	HTTPClient *http.Client

	// Token authenticates GitHub requests. Empty falls back to the
	// environment.
	Token string

	verbose    bool
	configPath string
}

// NewApp returns an [App] wired to the OS filesystem, the current
// directory and stdout.
func NewApp() *App {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &App{
		Fs:        afero.NewOsFs(),
		WorkDir:   wd,
		Printer:   output.NewPrinter(),
		LogOutput: os.Stderr,
	}
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowcrafter",
		Short: "Create and manage GitHub Actions workflows from reusable templates",
		Long: `flowcrafter composes GitHub Actions workflows from a library of
workflow and job templates stored in a GitHub repository or a local directory.

Workflows created with flowcrafter are recorded in .github/flowcrafter.yml so
that they can be regenerated when the templates change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to the configuration file")

	rootCmd.AddCommand(
		newInitCommand(app),
		newCreateCommand(app),
		newUpdateCommand(app),
	)

	return rootCmd
}

// ExecuteResult is the outcome of running the CLI.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// Run executes the CLI with args and maps failures onto exit codes.
func Run(ctx context.Context, app *App, args []string) ExecuteResult {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.Printer.Writer())
	rootCmd.SetErr(app.Printer.Writer())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		// Flag and argument errors have not been reported yet.
		app.Printer.Error(err)
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{}
}

// Execute runs the CLI with the process arguments and exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	result := Run(ctx, NewApp(), os.Args[1:])
	stop()
	os.Exit(result.ExitCode)
}

// fail reports err and converts it into an [ExitError].
func (a *App) fail(logger *zap.Logger, err error) error {
	logger.Debug("command failed", zap.Error(err), zap.Stringer("kind", fragment.KindOf(err)))
	a.Printer.Error(err)
	return NewExitError(1)
}

func (a *App) logger(level string) *zap.Logger {
	w := a.LogOutput
	if w == nil {
		w = os.Stderr
	}
	logger, err := logging.New(logging.Level(level, a.verbose), w)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (a *App) project() (*project.Project, error) {
	return project.Find(a.Fs, a.WorkDir)
}

// session is everything a composing command needs.
type session struct {
	project    *project.Project
	configPath string
	config     *config.Config
	logger     *zap.Logger
	source     fragment.Source
}

// openSession locates the project, loads and validates its configuration and
// constructs the fragment source.
func (a *App) openSession() (*session, error) {
	p, err := a.project()
	if err != nil {
		return nil, err
	}

	path := config.ResolvePath(p.Root(), a.configPath)
	cfg, err := config.NewLoaderWithFs(a.Fs).LoadPath(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := a.logger(cfg.Log.Level)
	logger.Debug("loaded configuration",
		zap.String("path", path),
		zap.Stringer("library", cfg.Library),
		zap.Int("workflows", len(cfg.Workflows)))

	source, err := library.New(cfg.Library, library.Options{
		ProjectRoot: p.Root(),
		Fs:          a.Fs,
		HTTPClient:  a.HTTPClient,
		Token:       a.Token,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		project:    p,
		configPath: path,
		config:     cfg,
		logger:     logger,
		source:     source,
	}, nil
}

// runner builds a [workflow.Runner] for the session.
func (s *session) runner(strategyName string, writer workflow.Writer) (*workflow.Runner, error) {
	if strategyName == "" {
		strategyName = s.config.Render.Strategy
	}
	strategy, err := render.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(strategy, render.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	runner := workflow.NewRunner(s.source, renderer, writer)
	runner.SetLogger(s.logger)
	return runner, nil
}

// documentWriter prints composed workflows instead of writing them.
type documentWriter struct {
	printer *output.Printer
}

func (w documentWriter) Write(name string, wf fragment.Workflow) (string, error) {
	w.printer.Document(wf.String())
	return "stdout", nil
}
