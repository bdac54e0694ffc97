package fragment

import (
	"context"
	"path"
	"strings"
)

// WorkflowFile is the file name of a workflow template inside its directory.
const WorkflowFile = "workflow.yml"

// Source resolves fragments from a library backend.
//
// Implementations exist for the GitHub contents API and for a local directory
// tree. Both are read-only and stateless after construction, so a single
// Source can serve concurrent compositions.
type Source interface {
	// Workflow resolves the workflow template stored at {name}/workflow.yml.
	// The returned fragment is named after the workflow.
	Workflow(ctx context.Context, name string) (Fragment, error)

	// Job resolves the job template stored at {workflow}/{name}.yml.
	// The returned fragment is named after the job.
	Job(ctx context.Context, workflow, name string) (Fragment, error)

	// String identifies the backend in error messages,
	// e.g. "repository jdno/flowcrafter" or "path /srv/library".
	String() string
}

// WorkflowPath returns the slash-separated library path of a workflow template.
func WorkflowPath(name string) string {
	return path.Join(name, WorkflowFile)
}

// JobPath returns the slash-separated library path of a job template.
func JobPath(workflow, name string) string {
	return path.Join(workflow, name+".yml")
}

// ValidateName checks that name can be used as a single library path segment.
// kind describes the name in the error, e.g. "workflow" or "job".
//
// Empty names, "." and "..", and names containing a path separator are a
// configuration failure. [WorkflowPath] and [JobPath] clean their result, so
// such names would otherwise resolve outside the workflow's directory.
func ValidateName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ConfigurationFailure("invalid %s name '%s'", kind, name)
	}
	return nil
}
