// Package render composes a workflow fragment and its job fragments into a
// single workflow document.
//
// Two strategies are available and exactly one is used per [Renderer]:
//
//   - [StrategyMerge] (default) appends the job templates, indented by two
//     spaces, under the workflow's jobs: key. A jobs: line is added when the
//     workflow template has none.
//   - [StrategyTemplate] renders job templates through a template [Engine] and
//     exposes the results to the workflow template as the list variable "jobs",
//     so the workflow decides where jobs are placed.
//
// The strategies are not interchangeable. Merge never evaluates template
// syntax, which keeps GitHub expressions such as ${{ matrix.os }} intact;
// template treats {{ ... }} as engine syntax.
//
// A Renderer performs no I/O and its output depends only on its input.
package render

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"flowcrafter/internal/fragment"
)

// Strategy names a composition strategy.
type Strategy string

const (
	// StrategyMerge appends indented jobs under a jobs: key.
	StrategyMerge Strategy = "merge"

	// StrategyTemplate renders the workflow template with a "jobs" variable.
	StrategyTemplate Strategy = "template"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyMerge

// ParseStrategy converts a configured name into a [Strategy]. The empty
// string selects [DefaultStrategy].
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultStrategy, nil
	case StrategyMerge:
		return StrategyMerge, nil
	case StrategyTemplate:
		return StrategyTemplate, nil
	default:
		return "", fragment.ConfigurationFailure("unknown render strategy '%s' (expected '%s' or '%s')", name, StrategyMerge, StrategyTemplate)
	}
}

// Renderer composes fragments into a [fragment.Workflow].
type Renderer struct {
	strategy Strategy
	engine   Engine
	logger   *zap.Logger
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithEngine replaces the template engine used by [StrategyTemplate].
func WithEngine(engine Engine) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a [Renderer] for the given strategy.
func New(strategy Strategy, opts ...Option) (*Renderer, error) {
	if strategy != StrategyMerge && strategy != StrategyTemplate {
		return nil, fragment.ConfigurationFailure("unknown render strategy '%s'", strategy)
	}

	r := &Renderer{
		strategy: strategy,
		engine:   NewPongoEngine(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Strategy returns the strategy of the renderer.
func (r *Renderer) Strategy() Strategy {
	return r.strategy
}

// Render composes workflow with jobs, preserving the order of jobs.
func (r *Renderer) Render(workflow fragment.Fragment, jobs []fragment.Fragment) (fragment.Workflow, error) {
	r.logger.Debug("rendering workflow",
		zap.String("workflow", workflow.Name()),
		zap.Int("jobs", len(jobs)),
		zap.String("strategy", string(r.strategy)))

	switch r.strategy {
	case StrategyTemplate:
		return r.renderTemplate(workflow, jobs)
	default:
		return Merge(workflow, jobs), nil
	}
}

// String describes the renderer.
func (r *Renderer) String() string {
	return fmt.Sprintf("Renderer { strategy: %s }", r.strategy)
}

func (r *Renderer) renderTemplate(workflow fragment.Fragment, jobs []fragment.Fragment) (fragment.Workflow, error) {
	rendered := make([]string, 0, len(jobs))
	for _, job := range jobs {
		out, err := r.engine.Render(job.Name(), job.Template(), nil)
		if err != nil {
			return "", fragment.TemplateFailure(job.Name(), err)
		}
		rendered = append(rendered, out)
	}

	out, err := r.engine.Render(workflow.Name(), workflow.Template(), map[string]any{
		"jobs": rendered,
	})
	if err != nil {
		return "", fragment.TemplateFailure(workflow.Name(), err)
	}

	return fragment.Workflow(out), nil
}
