// Package workflow provides workflow orchestration for flowcrafter.
//
// A workflow is produced in three steps: its fragments are resolved from a
// [fragment.Source], composed by a [Renderer], and handed to a [Writer].
//
// Key types:
//   - [Runner] orchestrates resolution, composition and persistence
//   - [FileWriter] persists composed workflows under .github/workflows
//   - [ProgressCallback] reports progress while replaying the registry
//
// Resolution is sequential: the workflow fragment first, then each job in the
// given order. Nothing is written unless every fragment resolved and
// composition succeeded.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flowcrafter/internal/config"
	"flowcrafter/internal/fragment"
)

// Renderer composes a workflow fragment with job fragments.
//
// The [render.Renderer] type implements this interface.
type Renderer interface {
	Render(workflow fragment.Fragment, jobs []fragment.Fragment) (fragment.Workflow, error)
}

// Writer persists a composed workflow and returns where it was written.
type Writer interface {
	Write(name string, workflow fragment.Workflow) (string, error)
}

// ProgressCallback is invoked before each registry entry is regenerated.
//
// The callback receives index (1-based), total entry count, and the workflow
// name. Calls are serialized even when entries run in parallel.
type ProgressCallback func(index, total int, name string)

// Runner produces workflows from a fragment source.
//
// Use [NewRunner] to create an instance. A Runner holds no per-call state and
// may be shared across goroutines.
type Runner struct {
	source   fragment.Source
	renderer Renderer
	writer   Writer
	logger   *zap.Logger

	concurrency int

	progressMu       sync.Mutex
	progressCallback ProgressCallback
}

// NewRunner creates a Runner. writer may be nil when only [Runner.Compose]
// is used.
func NewRunner(source fragment.Source, renderer Renderer, writer Writer) *Runner {
	return &Runner{
		source:      source,
		renderer:    renderer,
		writer:      writer,
		logger:      zap.NewNop(),
		concurrency: 1,
	}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetConcurrency sets how many registry entries [Runner.Update] regenerates
// in parallel. Values below 1 are treated as 1.
func (r *Runner) SetConcurrency(n int) {
	r.concurrency = max(n, 1)
}

// SetProgressCallback configures an optional progress callback for
// [Runner.Update].
func (r *Runner) SetProgressCallback(cb ProgressCallback) {
	r.progressCallback = cb
}

// Compose resolves the workflow and its jobs and returns the composed text
// without writing it.
//
// Every name is validated before the first fragment is requested. Compose
// fails on the first fragment that cannot be resolved; remaining fragments are
// not requested.
func (r *Runner) Compose(ctx context.Context, name string, jobs []string) (fragment.Workflow, error) {
	if err := fragment.ValidateName("workflow", name); err != nil {
		return "", err
	}
	for _, job := range jobs {
		if err := fragment.ValidateName("job", job); err != nil {
			return "", err
		}
	}

	r.logger.Debug("resolving workflow", zap.String("workflow", name), zap.String("source", r.source.String()))

	workflow, err := r.source.Workflow(ctx, name)
	if err != nil {
		return "", err
	}

	fragments := make([]fragment.Fragment, 0, len(jobs))
	for _, job := range jobs {
		r.logger.Debug("resolving job", zap.String("workflow", name), zap.String("job", job))

		f, err := r.source.Job(ctx, name, job)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, f)
	}

	return r.renderer.Render(workflow, fragments)
}

// Create composes the workflow and writes it. It returns the path written.
func (r *Runner) Create(ctx context.Context, name string, jobs []string) (string, error) {
	if r.writer == nil {
		return "", fmt.Errorf("no writer configured for workflow '%s'", name)
	}

	workflow, err := r.Compose(ctx, name, jobs)
	if err != nil {
		return "", err
	}

	path, err := r.writer.Write(name, workflow)
	if err != nil {
		return "", err
	}

	r.logger.Info("wrote workflow", zap.String("workflow", name), zap.String("path", path))
	return path, nil
}

// Update regenerates every entry of the registry.
//
// Entries are processed in order, or up to the configured concurrency at a
// time. Update uses fail-fast behavior: after the first error no further
// entries are started and that error is returned.
func (r *Runner) Update(ctx context.Context, entries []config.WorkflowConfig) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	total := len(entries)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r.reportProgress(i+1, total, entry.Name)

			if _, err := r.Create(ctx, entry.Name, entry.Jobs); err != nil {
				return fmt.Errorf("failed to update workflow '%s': %w", entry.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) reportProgress(index, total int, name string) {
	if r.progressCallback == nil {
		return
	}

	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.progressCallback(index, total, name)
}
