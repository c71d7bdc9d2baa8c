package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileSystem is the file access Load needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// DefaultFS returns the operating system file system.
func DefaultFS() FileSystem { return osFS{} }

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	return LoadFS(DefaultFS(), path)
}

// LoadFS is Load reading through fsys.
func LoadFS(fsys FileSystem, path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			pe := &ParseError{Path: path, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, pe.Column = de.Position()
			}
			return pe
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// Environment variables read by ApplyEnv.
const (
	EnvRepository  = "COMMITDESK_REPOSITORY"
	EnvGitBinary   = "COMMITDESK_GIT_BINARY"
	EnvAuthorName  = "COMMITDESK_AUTHOR_NAME"
	EnvAuthorEmail = "COMMITDESK_AUTHOR_EMAIL"
	EnvLogLevel    = "COMMITDESK_LOG_LEVEL"
	EnvLogFormat   = "COMMITDESK_LOG_FORMAT"
	EnvDiffContext = "COMMITDESK_DIFF_CONTEXT"
	EnvRenames     = "COMMITDESK_DETECT_RENAMES"
)

// ApplyEnv overrides cfg from the process environment.
func ApplyEnv(cfg *Config) error {
	return ApplyEnvFunc(cfg, os.LookupEnv)
}

// ApplyEnvFunc overrides cfg from lookup. Empty values are treated as set.
func ApplyEnvFunc(cfg *Config, lookup LookupFunc) error {
	strs := map[string]*string{
		EnvRepository:  &cfg.Repository,
		EnvGitBinary:   &cfg.GitBinary,
		EnvAuthorName:  &cfg.Identity.Name,
		EnvAuthorEmail: &cfg.Identity.Email,
		EnvLogLevel:    &cfg.Log.Level,
		EnvLogFormat:   &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errs []error
	if v, ok := lookup(EnvDiffContext); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDiffContext, err))
		} else {
			cfg.Diff.ContextLines = n
		}
	}
	if v, ok := lookup(EnvRenames); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvRenames, err))
		} else {
			cfg.Status.DetectRenames = b
		}
	}
	return errors.Join(errs...)
}
