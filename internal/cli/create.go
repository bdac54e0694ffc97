package cli

import (
	"github.com/spf13/cobra"

	"flowcrafter/internal/config"
)

type createOptions struct {
	workflow string
	jobs     []string
	stdout   bool
	strategy string
}

func newCreateCommand(app *App) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from templates",
		Long: `Compose a workflow from the library and write it to
.github/workflows/<workflow>.yml.

The workflow template <workflow>/workflow.yml is combined with one
<workflow>/<job>.yml template per job, in the order the jobs are given. The
workflow and its jobs are recorded in .github/flowcrafter.yml so that update
can regenerate it. With --stdout the workflow is printed instead and nothing
is written.`,
		Example: `  flowcrafter create --workflow rust --jobs lint --jobs test
  flowcrafter create --workflow rust --jobs lint,style,test --stdout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.workflow, "workflow", "w", "", "Name of the workflow")
	cmd.Flags().StringSliceVarP(&opts.jobs, "jobs", "j", nil, "Jobs to add to the workflow, in order")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Print the workflow instead of writing it")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Composition strategy: merge or template")
	_ = cmd.MarkFlagRequired("workflow")

	return cmd
}

func runCreate(cmd *cobra.Command, app *App, opts *createOptions) error {
	s, err := app.openSession()
	if err != nil {
		return app.fail(app.logger(""), err)
	}

	if opts.stdout {
		runner, err := s.runner(opts.strategy, nil)
		if err != nil {
			return app.fail(s.logger, err)
		}
		wf, err := runner.Compose(cmd.Context(), opts.workflow, opts.jobs)
		if err != nil {
			return app.fail(s.logger, err)
		}
		app.Printer.Document(wf.String())
		return nil
	}

	runner, err := s.runner(opts.strategy, newFileWriter(app, s))
	if err != nil {
		return app.fail(s.logger, err)
	}

	path, err := runner.Create(cmd.Context(), opts.workflow, opts.jobs)
	if err != nil {
		return app.fail(s.logger, err)
	}

	persisted, err := existingConfig(app.Fs, s.configPath)
	if err != nil {
		return app.fail(s.logger, err)
	}
	persisted.Upsert(config.WorkflowConfig{Name: opts.workflow, Jobs: opts.jobs})
	if err := config.Save(app.Fs, s.configPath, persisted); err != nil {
		return app.fail(s.logger, err)
	}

	app.Printer.Success("Created %s", relativeTo(s.project.Root(), path))
	return nil
}
