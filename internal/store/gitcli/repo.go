// Package gitcli implements store.Store by running the git binary against a
// working copy. Porcelain v2 status drives change detection; plumbing
// commands manage the index, trees and commits so that no hooks run and no
// editor is ever started.
package gitcli

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"github.com/dshills/commitdesk/internal/logging"
	"github.com/dshills/commitdesk/internal/store"
)

// Option configures a Store.
type Option func(*Store)

// WithBinary sets the git executable. The default is "git" from PATH.
func WithBinary(bin string) Option {
	return func(s *Store) {
		if bin != "" {
			s.git.bin = bin
		}
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRenameDetection turns rename detection on or off. It is on by default.
func WithRenameDetection(on bool) Option {
	return func(s *Store) {
		s.renames = on
	}
}

// Store is a git-backed store.Store.
type Store struct {
	git     runner
	root    string
	renames bool
	logger  logging.Logger
}

// Discover returns the working copy root containing path.
func Discover(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", store.ErrNotRepository, path)
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return "", fmt.Errorf("%w: %s is bare", store.ErrNotRepository, path)
		}
		return "", fmt.Errorf("worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// Open returns a store for the working copy containing path.
func Open(path string, opts ...Option) (*Store, error) {
	root, err := Discover(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		git:     runner{bin: "git", dir: root},
		root:    root,
		renames: true,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "gitcli")
	s.git.logger = s.logger

	if _, err := exec.LookPath(s.git.bin); err != nil {
		return nil, fmt.Errorf("git binary %q: %w", s.git.bin, err)
	}
	return s, nil
}

// Root returns the working copy root.
func (s *Store) Root() string {
	return s.root
}

var _ store.Store = (*Store)(nil)
