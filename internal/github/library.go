// Package github implements a fragment source backed by the GitHub contents API.
//
// The library is a repository whose top-level directories are workflows:
//
//	rust/
//	  workflow.yml
//	  lint.yml
//	  test.yml
//
// Files are fetched with the go-github contents client. GitHub returns file
// content base64-encoded and wrapped at 60 columns; the newlines are stripped
// before decoding.
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	gh "github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"flowcrafter/internal/fragment"
)

// DefaultInstance is the API endpoint of github.com.
const DefaultInstance = "https://api.github.com"

const repoFormatError = "repository must be provided in the format 'owner/repository'"

// Library resolves fragments from a GitHub repository.
//
// Create instances with [New]. A Library holds no mutable state and is safe
// for concurrent use.
type Library struct {
	instance   string
	owner      string
	repository string
	token      string
	httpClient *http.Client
	client     *gh.Client
	logger     *zap.Logger
}

// Option configures a [Library].
type Option func(*Library)

// WithInstance points the library at a GitHub Enterprise API endpoint.
// An empty value keeps [DefaultInstance].
func WithInstance(instance string) Option {
	return func(l *Library) {
		if instance != "" {
			l.instance = instance
		}
	}
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(l *Library) {
		l.token = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Library) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a [Library] for owner/repository.
//
// Returns a configuration error if owner or repository is empty, or if the
// instance is not an absolute http(s) URL.
func New(owner, repository string, opts ...Option) (*Library, error) {
	l := &Library{
		instance:   DefaultInstance,
		owner:      strings.TrimSpace(owner),
		repository: strings.TrimSpace(repository),
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.owner == "" {
		return nil, fragment.ConfigurationFailure("missing field 'owner'")
	}
	if l.repository == "" {
		return nil, fragment.ConfigurationFailure("missing field 'repository'")
	}
	if err := ValidateInstance(l.instance); err != nil {
		return nil, err
	}

	client, err := newClient(l.httpClient, l.instance, l.token)
	if err != nil {
		return nil, err
	}
	l.client = client

	return l, nil
}

// newClient builds a contents client rooted at instance. The instance is used
// as the API base as given, so Enterprise endpoints must include their /api/v3
// prefix.
func newClient(httpClient *http.Client, instance, token string) (*gh.Client, error) {
	base, err := url.Parse(instance)
	if err != nil {
		return nil, fragment.ConfigurationFailure("invalid instance URL '%s': %v", instance, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	client.BaseURL = base
	client.UserAgent = "flowcrafter"

	return client, nil
}

// ValidateInstance checks that instance is an absolute http(s) URL.
func ValidateInstance(instance string) error {
	u, err := url.Parse(instance)
	if err != nil {
		return fragment.ConfigurationFailure("invalid instance URL '%s': %v", instance, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fragment.ConfigurationFailure("invalid instance URL '%s': must be an absolute http(s) URL", instance)
	}
	return nil
}

// ParseFullName splits "owner/repository" into its parts.
func ParseFullName(fullName string) (owner, repository string, err error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fragment.ConfigurationFailure(repoFormatError)
	}
	return parts[0], parts[1], nil
}

// Owner returns the repository owner.
func (l *Library) Owner() string { return l.owner }

// Repository returns the repository name.
func (l *Library) Repository() string { return l.repository }

// Instance returns the API endpoint.
func (l *Library) Instance() string { return l.instance }

// String implements [fragment.Source].
func (l *Library) String() string {
	return fmt.Sprintf("repository %s/%s", l.owner, l.repository)
}

// Workflow implements [fragment.Source].
func (l *Library) Workflow(ctx context.Context, name string) (fragment.Fragment, error) {
	return l.download(ctx, name, fragment.WorkflowPath(name))
}

// Job implements [fragment.Source].
func (l *Library) Job(ctx context.Context, workflow, name string) (fragment.Fragment, error) {
	return l.download(ctx, name, fragment.JobPath(workflow, name))
}

func (l *Library) download(ctx context.Context, name, path string) (fragment.Fragment, error) {
	item, err := l.fetch(ctx, path)
	if err != nil {
		return fragment.Fragment{}, err
	}

	text, err := l.decodeContent(path, item)
	if err != nil {
		return fragment.Fragment{}, err
	}

	return fragment.NewBuilder().
		Name(name).
		Template(fragment.Template(text)).
		Build()
}

// fetch returns the file at path. A directory listing resolves to its first
// entry and an empty listing is not found.
func (l *Library) fetch(ctx context.Context, path string) (*gh.RepositoryContent, error) {
	l.logger.Debug("fetching fragment",
		zap.String("path", path),
		zap.String("repository", l.owner+"/"+l.repository))

	file, dir, resp, err := l.client.Repositories.GetContents(ctx, l.owner, l.repository, path, nil)
	if err != nil {
		return nil, l.classify(path, resp, err)
	}

	if file == nil {
		if len(dir) == 0 || dir[0] == nil {
			return nil, fragment.NotFound(path, l.String())
		}
		file = dir[0]
	}

	l.logger.Debug("fetched fragment",
		zap.String("path", path),
		zap.Int("size", file.GetSize()))

	return file, nil
}

// classify maps a contents client failure onto the fragment error kinds. A
// 404 is not found and a 2xx response that failed to parse is a decode
// failure. Anything else is a transport failure.
func (l *Library) classify(path string, resp *gh.Response, err error) error {
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fragment.NotFound(path, l.String())
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return fragment.DecodeFailure(path, l.String(), fmt.Errorf("invalid response: %w", err))
		}
	}
	return fragment.TransportFailure(path, l.String(), err)
}

func (l *Library) decodeContent(path string, item *gh.RepositoryContent) (string, error) {
	if item.Content == nil {
		return "", fragment.DecodeFailure(path, l.String(), errors.New("template from GitHub is empty"))
	}
	if encoding := item.GetEncoding(); encoding != "" && encoding != "base64" {
		return "", fragment.DecodeFailure(path, l.String(), fmt.Errorf("unsupported encoding '%s'", encoding))
	}

	raw, err := Base64Decode(*item.Content)
	if err != nil {
		return "", fragment.DecodeFailure(path, l.String(), fmt.Errorf("failed to base64 decode template from GitHub: %w", err))
	}
	if !utf8.Valid(raw) {
		return "", fragment.DecodeFailure(path, l.String(), fmt.Errorf("failed to decode template '%s' as UTF-8", path))
	}

	return string(raw), nil
}

// Base64Decode decodes standard padded base64 after removing the line breaks
// GitHub inserts into encoded file content.
func Base64Decode(encoded string) ([]byte, error) {
	sanitized := strings.ReplaceAll(encoded, "\n", "")
	return base64.StdEncoding.DecodeString(sanitized)
}
