package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowcrafter/internal/config"
	"flowcrafter/internal/fragment"
	"flowcrafter/internal/github"
)

type initOptions struct {
	repository string
	instance   string
	path       string
}

func newInitCommand(app *App) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the template library for this repository",
		Long: `Configure where workflow and job templates are fetched from.

Use --repository to fetch templates from a GitHub repository, optionally on a
GitHub Enterprise instance, or --path to read them from a local directory.
The configuration is written to .github/flowcrafter.yml. Workflows already
recorded in an existing configuration are kept.`,
		Example: `  flowcrafter init --repository jdno/workflows
  flowcrafter init --repository acme/workflows --instance https://github.acme.com/api/v3
  flowcrafter init --path ../workflow-templates`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.repository, "repository", "", "GitHub repository with templates, as owner/repository")
	cmd.Flags().StringVar(&opts.instance, "instance", "", "GitHub API URL, for GitHub Enterprise")
	cmd.Flags().StringVar(&opts.path, "path", "", "Local directory with templates")
	cmd.MarkFlagsMutuallyExclusive("repository", "path")
	cmd.MarkFlagsMutuallyExclusive("instance", "path")
	cmd.MarkFlagsOneRequired("repository", "path")

	return cmd
}

func runInit(app *App, opts *initOptions) error {
	logger := app.logger("")

	lib, err := opts.library()
	if err != nil {
		return app.fail(logger, err)
	}

	p, err := app.project()
	if err != nil {
		return app.fail(logger, err)
	}

	path := config.ResolvePath(p.Root(), app.configPath)
	cfg, err := existingConfig(app.Fs, path)
	if err != nil {
		return app.fail(logger, err)
	}

	cfg.Library = lib
	if err := cfg.Validate(); err != nil {
		return app.fail(logger, err)
	}
	if err := config.Save(app.Fs, path, cfg); err != nil {
		return app.fail(logger, err)
	}

	logger.Debug("saved configuration", zap.String("path", path), zap.Stringer("library", lib))
	app.Printer.Success("Initialized flowcrafter with %s in %s", lib, relativeTo(p.Root(), path))
	return nil
}

// library builds the library configuration from the flags.
func (o *initOptions) library() (config.LibraryConfig, error) {
	if o.path != "" {
		return config.LibraryConfig{Local: &config.LocalConfig{Path: o.path}}, nil
	}
	if o.repository == "" {
		return config.LibraryConfig{}, fragment.ConfigurationFailure("either --repository or --path must be provided")
	}

	owner, repository, err := github.ParseFullName(o.repository)
	if err != nil {
		return config.LibraryConfig{}, err
	}
	return config.LibraryConfig{GitHub: &config.GitHubConfig{
		Instance:   o.instance,
		Owner:      owner,
		Repository: repository,
	}}, nil
}

// existingConfig returns the configuration at path, or defaults when the
// project has not been initialized yet.
func existingConfig(fs afero.Fs, path string) (*config.Config, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}
	if !exists {
		return config.DefaultConfig(), nil
	}
	return config.ReadFile(fs, path)
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
