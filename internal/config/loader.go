package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "FLOWCRAFTER"

// EnvConfigPath names the environment variable that overrides the
// configuration file location.
const EnvConfigPath = EnvPrefix + "_CONFIG_PATH"

// RelativePath is the location of the configuration file inside a project.
var RelativePath = filepath.Join(".github", "flowcrafter.yml")

// ErrNotInitialized is returned by [Loader.Load] when the project has no
// configuration file.
var ErrNotInitialized = errors.New("flowcrafter is not initialized, run 'flowcrafter init' first")

// Path returns the configuration file path for the project at root.
func Path(root string) string {
	return filepath.Join(root, RelativePath)
}

// Loader handles configuration loading using Viper.
//
// Loader reads the YAML configuration file, applies environment variable
// overrides with the FLOWCRAFTER_ prefix and fills unset values from
// [DefaultConfig]. File access goes through an [afero.Fs].
type Loader struct {
	v  *viper.Viper
	fs afero.Fs
}

// NewLoader creates a [Loader] on the OS filesystem.
func NewLoader() *Loader {
	return NewLoaderWithFs(afero.NewOsFs())
}

// NewLoaderWithFs creates a [Loader] reading from fs.
func NewLoaderWithFs(fs afero.Fs) *Loader {
	v := viper.New()
	v.SetFs(fs)
	return &Loader{v: v, fs: fs}
}

// ResolvePath returns the configuration file to use for the project at root:
// override if set, then FLOWCRAFTER_CONFIG_PATH, then [Path].
func ResolvePath(root, override string) string {
	if override != "" {
		return override
	}
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return Path(root)
}

// Load reads the configuration of the project at projectRoot.
//
// The file named by FLOWCRAFTER_CONFIG_PATH takes precedence over
// <projectRoot>/.github/flowcrafter.yml. A missing file yields
// [ErrNotInitialized].
func (l *Loader) Load(projectRoot string) (*Config, error) {
	return l.LoadPath(ResolvePath(projectRoot, ""))
}

// LoadPath reads configuration from path, which must exist.
func (l *Loader) LoadPath(path string) (*Config, error) {
	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w (no configuration at %s)", ErrNotInitialized, path)
	}

	return l.LoadFromFile(path)
}

// LoadFromFile reads configuration from path, applying environment overrides
// and defaults.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.setDefaults()

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Workflows == nil {
		cfg.Workflows = []WorkflowConfig{}
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("render.strategy", defaults.Render.Strategy)
	l.v.SetDefault("update.concurrency", defaults.Update.Concurrency)
	l.v.SetDefault("log.level", defaults.Log.Level)

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// ReadFile decodes the configuration file at path as written, without
// defaults or environment overrides. Use it to edit and [Save] a file.
func ReadFile(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Workflows == nil {
		cfg.Workflows = []WorkflowConfig{}
	}

	return &cfg, nil
}

// Marshal encodes cfg as YAML with two-space indentation.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes cfg to path on fs, creating parent directories.
func Save(fs afero.Fs, path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
