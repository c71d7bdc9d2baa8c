// Package config holds commitdesk's settings.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file (Load)
//  3. COMMITDESK_* environment variables (ApplyEnv)
//
// Command line flags are applied by the CLI on top of the result.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/commitdesk/internal/logging"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates a setting has an unusable value.
	ErrValidationFailed = errors.New("validation failed")

	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Config is the complete set of settings.
type Config struct {
	// Repository is the working copy to open.
	Repository string `toml:"repository" yaml:"repository"`

	// GitBinary is the git executable used by the store.
	GitBinary string `toml:"git_binary" yaml:"git_binary"`

	Identity Identity       `toml:"identity" yaml:"identity"`
	Status   StatusSettings `toml:"status" yaml:"status"`
	Diff     DiffSettings   `toml:"diff" yaml:"diff"`
	Log      LogSettings    `toml:"log" yaml:"log"`
	Watch    WatchSettings  `toml:"watch" yaml:"watch"`
}

// Identity overrides the author identity reported by the repository.
type Identity struct {
	Name  string `toml:"name" yaml:"name"`
	Email string `toml:"email" yaml:"email"`
}

// IsSet reports whether both name and email are present.
func (i Identity) IsSet() bool {
	return i.Name != "" && i.Email != ""
}

// StatusSettings controls status queries.
type StatusSettings struct {
	DetectRenames bool `toml:"detect_renames" yaml:"detect_renames"`
}

// DiffSettings controls hunk output.
type DiffSettings struct {
	ContextLines int `toml:"context_lines" yaml:"context_lines"`
}

// LogSettings controls the logger.
type LogSettings struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// WatchSettings controls the filesystem watcher.
type WatchSettings struct {
	Debounce Duration `toml:"debounce" yaml:"debounce"`
	Ignore   []string `toml:"ignore" yaml:"ignore"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Repository: ".",
		GitBinary:  "git",
		Status:     StatusSettings{DetectRenames: true},
		Diff:       DiffSettings{ContextLines: 3},
		Log:        LogSettings{Level: "info", Format: string(logging.FormatText)},
		Watch:      WatchSettings{Debounce: Duration(200 * time.Millisecond)},
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var errs []error
	if c.Diff.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("%w: diff.context_lines must be >= 0, got %d",
			ErrValidationFailed, c.Diff.ContextLines))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("%w: log.format must be text or json, got %q",
			ErrValidationFailed, c.Log.Format))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce must not be negative", ErrValidationFailed))
	}
	if (c.Identity.Name == "") != (c.Identity.Email == "") {
		errs = append(errs, fmt.Errorf("%w: identity needs both name and email", ErrValidationFailed))
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration the settings describe.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	if c.Log.Format != "" {
		cfg.Format = logging.Format(c.Log.Format)
	}
	return cfg
}

// Duration is a time.Duration written as a string such as "200ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}
