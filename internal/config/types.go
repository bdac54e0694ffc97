// Package config provides configuration loading and management for flowcrafter.
//
// Configuration lives in the project at .github/flowcrafter.yml. It is loaded
// with Viper, which adds environment variable overrides, and saved with yaml.v3
// so that init and create can rewrite it.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [LibraryConfig] selects the fragment library (GitHub or local)
//   - [WorkflowConfig] is one entry of the workflow registry
//
// Configuration priority (highest to lowest):
//  1. Environment variables (FLOWCRAFTER_ prefix, e.g. FLOWCRAFTER_RENDER_STRATEGY)
//  2. Config file specified by FLOWCRAFTER_CONFIG_PATH or --config
//  3. <project>/.github/flowcrafter.yml
//  4. [DefaultConfig] defaults
package config

import (
	"fmt"
	"slices"

	"flowcrafter/internal/fragment"
	"flowcrafter/internal/github"
)

// Log levels accepted by [LogConfig.Level].
const (
	LogLevelNone   = "none"
	LogLevelNormal = "normal"
	LogLevelDebug  = "debug"
)

// Config represents the root configuration structure.
//
// This is the configuration container loaded by [Loader] and written by [Save].
// Use [DefaultConfig] to get sensible defaults.
type Config struct {
	// Library selects where workflow and job templates are fetched from.
	Library LibraryConfig `mapstructure:"library" yaml:"library"`

	// Workflows is the registry of generated workflows. The update command
	// regenerates every entry in order.
	Workflows []WorkflowConfig `mapstructure:"workflows" yaml:"workflows"`

	// Render configures how fragments are composed.
	Render RenderConfig `mapstructure:"render" yaml:"render,omitempty"`

	// Update configures the update command.
	Update UpdateConfig `mapstructure:"update" yaml:"update,omitempty"`

	// Log configures diagnostic logging.
	Log LogConfig `mapstructure:"log" yaml:"log,omitempty"`
}

// LibraryConfig is a tagged union: exactly one of GitHub or Local is set.
type LibraryConfig struct {
	GitHub *GitHubConfig `mapstructure:"github" yaml:"github,omitempty"`
	Local  *LocalConfig  `mapstructure:"local" yaml:"local,omitempty"`
}

// GitHubConfig points at a repository on GitHub or GitHub Enterprise.
type GitHubConfig struct {
	// Instance is the API base URL. Empty means https://api.github.com.
	Instance string `mapstructure:"instance" yaml:"instance,omitempty"`

	Owner      string `mapstructure:"owner" yaml:"owner"`
	Repository string `mapstructure:"repository" yaml:"repository"`
}

// LocalConfig points at a directory of templates. Relative paths are resolved
// against the project root.
type LocalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// WorkflowConfig records how a workflow was created.
type WorkflowConfig struct {
	Name string   `mapstructure:"name" yaml:"name"`
	Jobs []string `mapstructure:"jobs" yaml:"jobs"`
}

// RenderConfig configures composition.
type RenderConfig struct {
	// Strategy is "merge" (default) or "template".
	Strategy string `mapstructure:"strategy" yaml:"strategy,omitempty"`
}

// UpdateConfig configures the update command.
type UpdateConfig struct {
	// Concurrency is the number of workflows regenerated in parallel.
	// Default: 1
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency,omitempty"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is one of "none", "normal" or "debug".
	// Default: "normal"
	Level string `mapstructure:"level" yaml:"level,omitempty"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
//
// No library is configured; init must set one before the configuration is
// valid.
func DefaultConfig() *Config {
	return &Config{
		Workflows: []WorkflowConfig{},
		Render: RenderConfig{
			Strategy: "merge",
		},
		Update: UpdateConfig{
			Concurrency: 1,
		},
		Log: LogConfig{
			Level: LogLevelNormal,
		},
	}
}

// Validate checks the configuration before anything is fetched.
//
// Failures are reported as [fragment.ErrConfiguration].
func (c *Config) Validate() error {
	if err := c.Library.Validate(); err != nil {
		return err
	}

	for i, wf := range c.Workflows {
		if wf.Name == "" {
			return fragment.ConfigurationFailure("workflows[%d]: missing field 'name'", i)
		}
	}

	if c.Update.Concurrency < 0 {
		return fragment.ConfigurationFailure("update.concurrency must not be negative, got %d", c.Update.Concurrency)
	}

	switch c.Log.Level {
	case "", LogLevelNone, LogLevelNormal, LogLevelDebug:
	default:
		return fragment.ConfigurationFailure("unknown log level '%s'", c.Log.Level)
	}

	return nil
}

// Validate checks that exactly one library is configured and that it is
// complete.
func (l LibraryConfig) Validate() error {
	switch {
	case l.GitHub == nil && l.Local == nil:
		return fragment.ConfigurationFailure("missing library, configure either 'github' or 'local'")
	case l.GitHub != nil && l.Local != nil:
		return fragment.ConfigurationFailure("library must configure exactly one of 'github' or 'local'")
	case l.GitHub != nil:
		if l.GitHub.Owner == "" {
			return fragment.ConfigurationFailure("library.github: missing field 'owner'")
		}
		if l.GitHub.Repository == "" {
			return fragment.ConfigurationFailure("library.github: missing field 'repository'")
		}
		if l.GitHub.Instance != "" {
			if err := github.ValidateInstance(l.GitHub.Instance); err != nil {
				return err
			}
		}
	default:
		if l.Local.Path == "" {
			return fragment.ConfigurationFailure("library.local: missing field 'path'")
		}
	}
	return nil
}

// String describes the configured library.
func (l LibraryConfig) String() string {
	switch {
	case l.GitHub != nil:
		return fmt.Sprintf("repository %s/%s", l.GitHub.Owner, l.GitHub.Repository)
	case l.Local != nil:
		return fmt.Sprintf("path %s", l.Local.Path)
	default:
		return "no library"
	}
}

// Workflow returns the registry entry named name.
func (c *Config) Workflow(name string) (WorkflowConfig, bool) {
	i := slices.IndexFunc(c.Workflows, func(wf WorkflowConfig) bool { return wf.Name == name })
	if i < 0 {
		return WorkflowConfig{}, false
	}
	return c.Workflows[i], true
}

// Upsert records entry in the registry. An existing entry with the same name
// is replaced in place; otherwise entry is appended.
func (c *Config) Upsert(entry WorkflowConfig) {
	entry.Jobs = slices.Clone(entry.Jobs)
	if entry.Jobs == nil {
		entry.Jobs = []string{}
	}

	for i := range c.Workflows {
		if c.Workflows[i].Name == entry.Name {
			c.Workflows[i] = entry
			return
		}
	}
	c.Workflows = append(c.Workflows, entry)
}
