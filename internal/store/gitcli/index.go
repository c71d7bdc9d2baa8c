package gitcli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/commitdesk/internal/store"
)

const nullID = "0000000000000000000000000000000000000000"

// AddPath stages the working copy content of path.
func (s *Store) AddPath(ctx context.Context, path string) error {
	_, err := s.git.run(ctx, "add", "--", path)
	return err
}

// RemovePath drops path from the index, whether or not it still exists
// in the working copy.
func (s *Store) RemovePath(ctx context.Context, path string) error {
	_, err := s.git.run(ctx, "update-index", "--force-remove", "--", path)
	return err
}

// ResetPaths rewrites the index entries for paths from tree. Paths absent
// from tree are dropped from the index.
func (s *Store) ResetPaths(ctx context.Context, paths []string, tree store.TreeID) error {
	if len(paths) == 0 {
		return nil
	}
	if tree == "" || tree == store.EmptyTree {
		_, err := s.git.run(ctx, append([]string{"update-index", "--force-remove", "--"}, paths...)...)
		return err
	}

	out, err := s.git.run(ctx, append([]string{"ls-tree", "-r", "-z", "--full-tree", string(tree), "--"}, paths...)...)
	if err != nil {
		return err
	}

	var info strings.Builder
	found := make(map[string]bool, len(paths))
	for _, entry := range splitNUL(out) {
		// <mode> SP <type> SP <object> TAB <path>
		meta, path, ok := strings.Cut(entry, "\t")
		if !ok {
			return fmt.Errorf("malformed ls-tree entry %q", entry)
		}
		found[path] = true
		info.WriteString(meta)
		info.WriteByte('\t')
		info.WriteString(path)
		info.WriteByte(0)
	}
	for _, p := range paths {
		if !found[p] {
			fmt.Fprintf(&info, "0 %s\t%s\x00", nullID, p)
		}
	}

	_, err = s.git.do(ctx, call{
		args:  []string{"update-index", "-z", "--index-info"},
		stdin: strings.NewReader(info.String()),
	})
	return err
}

// WriteIndexTree writes the index as a tree object and returns its id.
func (s *Store) WriteIndexTree(ctx context.Context) (store.TreeID, error) {
	out, err := s.git.run(ctx, "write-tree")
	if err != nil {
		return "", err
	}
	return store.TreeID(strings.TrimSpace(out)), nil
}

// FindTree resolves id to a tree. It returns store.ErrTreeNotFound when
// the object does not exist.
func (s *Store) FindTree(ctx context.Context, id store.TreeID) (store.TreeID, error) {
	if id == store.EmptyTree {
		return id, nil
	}

	out, err := s.git.do(ctx, call{
		args:    []string{"rev-parse", "--verify", "-q", string(id) + "^{tree}"},
		okCodes: []int{1},
	})
	if err != nil {
		return "", err
	}
	tree := strings.TrimSpace(out)
	if tree == "" {
		return "", fmt.Errorf("%w: %s", store.ErrTreeNotFound, id)
	}
	return store.TreeID(tree), nil
}
