package render

import (
	"strings"

	"flowcrafter/internal/fragment"
)

// jobsMarker is the substring that marks an existing jobs section.
const jobsMarker = "jobs:"

// Merge composes workflow and jobs with [StrategyMerge].
//
// The workflow text is emitted verbatim, followed by a jobs: line when the
// workflow has no jobs section, followed by every job indented by two spaces.
// Segments are joined with a newline.
func Merge(workflow fragment.Fragment, jobs []fragment.Fragment) fragment.Workflow {
	text := workflow.Template().String()

	segments := []string{text}
	if !strings.Contains(text, jobsMarker) {
		segments = append(segments, jobsMarker)
	}

	indented := make([]string, len(jobs))
	for i, job := range jobs {
		indented[i] = indent(job.Template().String())
	}
	segments = append(segments, strings.Join(indented, "\n"))

	return fragment.Workflow(strings.Join(segments, "\n"))
}

// indent prefixes every non-empty line with two spaces and terminates every
// line with a newline. Empty lines stay empty.
func indent(content string) string {
	var b strings.Builder
	for _, line := range lines(content) {
		if line == "" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// lines splits content on \n. A final line terminator does not start a new
// line and a trailing \r is dropped from each line.
func lines(content string) []string {
	if content == "" {
		return nil
	}

	split := strings.Split(content, "\n")
	if split[len(split)-1] == "" {
		split = split[:len(split)-1]
	}
	for i, line := range split {
		split[i] = strings.TrimSuffix(line, "\r")
	}
	return split
}
