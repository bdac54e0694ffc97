// Package library constructs the fragment source selected by configuration.
package library

import (
	"net/http"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"flowcrafter/internal/config"
	"flowcrafter/internal/fragment"
	"flowcrafter/internal/github"
	"flowcrafter/internal/local"
)

// Token environment variables, in order of precedence.
var TokenEnv = []string{"FLOWCRAFTER_GITHUB_TOKEN", "GITHUB_TOKEN"}

// Options carries the dependencies shared by all backends.
type Options struct {
	// ProjectRoot anchors relative local library paths.
	ProjectRoot string

	// Fs is used by the local backend. Defaults to the OS filesystem.
	Fs afero.Fs

	// HTTPClient is used by the GitHub backend.
	HTTPClient *http.Client

	// Token authenticates GitHub requests. Defaults to [LookupToken].
	Token string

	Logger *zap.Logger
}

// New returns the [fragment.Source] described by cfg.
//
// The configuration is validated first, so an incomplete library fails before
// anything is fetched.
func New(cfg config.LibraryConfig, opts Options) (fragment.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Local != nil {
		return local.New(opts.ProjectRoot, cfg.Local.Path,
			local.WithFs(opts.Fs),
			local.WithLogger(logger))
	}

	token := opts.Token
	if token == "" {
		token = LookupToken()
	}

	ghOpts := []github.Option{
		github.WithToken(token),
		github.WithHTTPClient(opts.HTTPClient),
		github.WithLogger(logger),
	}
	if cfg.GitHub.Instance != "" {
		ghOpts = append(ghOpts, github.WithInstance(cfg.GitHub.Instance))
	}

	return github.New(cfg.GitHub.Owner, cfg.GitHub.Repository, ghOpts...)
}

// LookupToken returns the first non-empty token from [TokenEnv].
func LookupToken() string {
	for _, name := range TokenEnv {
		if token := os.Getenv(name); token != "" {
			return token
		}
	}
	return ""
}
