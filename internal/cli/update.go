package cli

import (
	"github.com/spf13/cobra"

	"flowcrafter/internal/workflow"
)

func newUpdateCommand(app *App) *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Regenerate all workflows recorded in the configuration",
		Long: `Regenerate every workflow recorded in .github/flowcrafter.yml from the
current templates, in the order they are recorded.

update stops at the first workflow that fails. Set update.concurrency in the
configuration to regenerate several workflows in parallel. With --stdout the
workflows are printed one after another instead of written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession()
			if err != nil {
				return app.fail(app.logger(""), err)
			}

			entries := s.config.Workflows
			if len(entries) == 0 {
				app.Printer.Info("No workflows to update")
				return nil
			}

			var writer workflow.Writer = newFileWriter(app, s)
			if stdout {
				writer = documentWriter{printer: app.Printer}
			}

			runner, err := s.runner("", writer)
			if err != nil {
				return app.fail(s.logger, err)
			}
			if !stdout {
				runner.SetConcurrency(s.config.Update.Concurrency)
				runner.SetProgressCallback(app.Printer.Progress)
			}

			if err := runner.Update(cmd.Context(), entries); err != nil {
				return app.fail(s.logger, err)
			}

			if !stdout {
				app.Printer.Success("Updated %d workflows", len(entries))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the workflows instead of writing them")

	return cmd
}

func newFileWriter(app *App, s *session) *workflow.FileWriter {
	return workflow.NewFileWriter(app.Fs, s.project.WorkflowsDir())
}
