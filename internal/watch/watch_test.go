package watch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// workingCopy creates a directory shaped like a repository with one
// subdirectory.
func workingCopy(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	return root
}

func start(t *testing.T, root string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)
	w, err := New(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// waitFor collects batches until every path in want has been seen.
func waitFor(t *testing.T, w *Watcher, want ...string) []string {
	t.Helper()
	var seen []string
	deadline := time.After(5 * time.Second)
	for {
		missing := false
		for _, p := range want {
			if !slices.Contains(seen, p) {
				missing = true
				break
			}
		}
		if !missing {
			return seen
		}
		select {
		case b := <-w.Batches():
			seen = append(seen, b.Paths...)
		case <-deadline:
			t.Fatalf("timed out waiting for %v, saw %v", want, seen)
		}
	}
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{root: root, gitDir: filepath.Join(root, ".git"), config: config{ignore: []string{"node_modules"}}}

	tests := []struct {
		path string
		rel  string
		ok   bool
	}{
		{"a.txt", "a.txt", true},
		{"sub/b.txt", "sub/b.txt", true},
		{".git/index", ".git/index", true},
		{".git/HEAD", ".git/HEAD", true},
		{".git/index.lock", ".git/index.lock", false},
		{".git/objects/ab/cdef", ".git/objects/ab/cdef", false},
		{".git", "", false},
		{"node_modules/x/y.js", "", false},
		{".", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rel, ok := w.classify(filepath.Join(root, filepath.FromSlash(tt.path)))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.rel, rel)
			}
		})
	}

	_, ok := w.classify(filepath.Join(filepath.Dir(root), "elsewhere"))
	assert.False(t, ok)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "none", Op(0).String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "create|remove", (OpCreate | OpRemove).String())
}

func TestNewWatchesTreeButNotGitInternals(t *testing.T) {
	root := workingCopy(t)
	w := start(t, root)

	assert.True(t, w.IsWatching(root))
	assert.True(t, w.IsWatching(filepath.Join(root, "sub")))
	assert.True(t, w.IsWatching(filepath.Join(root, ".git")))
	assert.False(t, w.IsWatching(filepath.Join(root, ".git", "objects")))
	assert.Equal(t, 3, w.Stats().WatchedDirs)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBatchesWorkingTreeChanges(t *testing.T) {
	root := workingCopy(t)
	w := start(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "a\n")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b\n")

	seen := waitFor(t, w, "a.txt", "sub/b.txt")
	assert.NotContains(t, seen, ".git/objects")
	assert.GreaterOrEqual(t, w.Stats().Batches, int64(1))
}

func TestGitIndexChangesAreReported(t *testing.T) {
	root := workingCopy(t)
	w := start(t, root)

	writeFile(t, filepath.Join(root, ".git", "objects", "blob"), "x")
	writeFile(t, filepath.Join(root, ".git", "index"), "DIRC")

	seen := waitFor(t, w, ".git/index")
	for _, p := range seen {
		assert.NotEqual(t, ".git/objects/blob", p)
	}
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := workingCopy(t)
	w := start(t, root)

	dir := filepath.Join(root, "fresh")
	require.NoError(t, os.Mkdir(dir, 0o755))
	waitFor(t, w, "fresh")
	require.True(t, w.IsWatching(dir))

	writeFile(t, filepath.Join(dir, "c.txt"), "c\n")
	waitFor(t, w, "fresh/c.txt")
}

func TestBurstIsCoalesced(t *testing.T) {
	root := workingCopy(t)
	w := start(t, root, WithDebounce(300*time.Millisecond))

	for i := range 5 {
		writeFile(t, filepath.Join(root, "a.txt"), string(rune('a'+i)))
	}

	select {
	case b := <-w.Batches():
		assert.Equal(t, []string{"a.txt"}, b.Paths)
		assert.True(t, b.Ops.Has(OpWrite) || b.Ops.Has(OpCreate))
	case <-time.After(5 * time.Second):
		t.Fatal("no batch")
	}
}

func TestCloseClosesChannels(t *testing.T) {
	w, err := New(workingCopy(t))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Batches()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
	assert.ErrorIs(t, w.add(w.Root()), ErrClosed)
}
