package gitcli

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-cmp/cmp"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

// testRepo creates a temporary git repository for testing.
func testRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// createFile creates a file in the repo.
func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

// gitCmd runs a git command in the repo.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func openStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	s, err := Open(dir, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func statusMap(t *testing.T, s *Store) map[string]change.Row {
	t.Helper()
	rows, err := s.QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	m := make(map[string]change.Row, len(rows))
	for _, r := range rows {
		m[r.Path] = r
	}
	return m
}

func testSignature() store.Signature {
	return store.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOpenNotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, store.ErrNotRepository) {
		t.Fatalf("Open = %v, want ErrNotRepository", err)
	}
}

func TestDiscoverFromSubdirectory(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "sub/deeper/file.txt", "x\n")

	root, err := Discover(filepath.Join(dir, "sub", "deeper"))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("Discover = %s, want %s", got, want)
	}
}

func TestStatusAndStaging(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "a\n")
	createFile(t, dir, "b.txt", "b\n")

	s := openStore(t, dir)
	ctx := context.Background()

	rows := statusMap(t, s)
	if rows["a.txt"].WorkTree != change.StatusNew || rows["b.txt"].WorkTree != change.StatusNew {
		t.Fatalf("untracked rows = %v", rows)
	}

	if err := s.AddPath(ctx, "a.txt"); err != nil {
		t.Fatalf("AddPath: %v", err)
	}

	rows = statusMap(t, s)
	if got := rows["a.txt"]; got.Index != change.StatusNew || got.WorkTree != change.StatusUnmodified {
		t.Errorf("a.txt = %+v", got)
	}
	if got := rows["b.txt"]; got.Index != change.StatusUnmodified || got.WorkTree != change.StatusNew {
		t.Errorf("b.txt = %+v", got)
	}

	if err := s.ResetPaths(ctx, []string{"a.txt"}, ""); err != nil {
		t.Fatalf("ResetPaths: %v", err)
	}
	if got := statusMap(t, s)["a.txt"]; got.Index != change.StatusUnmodified || got.WorkTree != change.StatusNew {
		t.Errorf("after reset a.txt = %+v", got)
	}
}

func TestCommitAndVerifyWithGoGit(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "hello\n")

	s := openStore(t, dir)
	ctx := context.Background()

	if last, err := s.LastCommit(ctx); err != nil || last != nil {
		t.Fatalf("LastCommit on empty repo = %v, %v", last, err)
	}

	if err := s.AddPath(ctx, "a.txt"); err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	tree, err := s.WriteIndexTree(ctx)
	if err != nil {
		t.Fatalf("WriteIndexTree: %v", err)
	}
	if found, err := s.FindTree(ctx, tree); err != nil || found != tree {
		t.Fatalf("FindTree = %s, %v", found, err)
	}

	sig := testSignature()
	id, err := s.CreateCommit(ctx, store.CommitRequest{
		Tree:      tree,
		Author:    sig,
		Committer: sig,
		Message:   "initial",
	})
	if err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("go-git open: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("go-git head: %v", err)
	}
	if head.Hash().String() != string(id) {
		t.Fatalf("HEAD = %s, want %s", head.Hash(), id)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		t.Fatalf("go-git commit: %v", err)
	}
	if commit.Message != "initial\n" {
		t.Errorf("message = %q", commit.Message)
	}
	if commit.Author.Name != sig.Name || !commit.Author.When.Equal(sig.When) {
		t.Errorf("author = %v", commit.Author)
	}
	if commit.NumParents() != 0 {
		t.Errorf("parents = %d", commit.NumParents())
	}
	file, err := commit.File("a.txt")
	if err != nil {
		t.Fatalf("go-git file: %v", err)
	}
	if content, _ := file.Contents(); content != "hello\n" {
		t.Errorf("content = %q", content)
	}

	last, err := s.LastCommit(ctx)
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}
	if last.ID != id || last.Tree != tree || last.Message != "initial" {
		t.Errorf("LastCommit = %+v", last)
	}
	if parent, err := s.ParentOfLastCommit(ctx); err != nil || parent != nil {
		t.Errorf("ParentOfLastCommit = %v, %v", parent, err)
	}
}

func TestAmendKeepsParentsAndAuthor(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	gitCmd(t, dir, "add", "a.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "first")
	createFile(t, dir, "b.txt", "two\n")
	gitCmd(t, dir, "add", "b.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "second")

	s := openStore(t, dir)
	ctx := context.Background()

	before, err := s.LastCommit(ctx)
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}
	parent, err := s.ParentOfLastCommit(ctx)
	if err != nil || parent == nil {
		t.Fatalf("ParentOfLastCommit = %v, %v", parent, err)
	}
	if parent.Message != "first" {
		t.Errorf("parent message = %q", parent.Message)
	}

	createFile(t, dir, "c.txt", "three\n")
	if err := s.AddPath(ctx, "c.txt"); err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	tree, err := s.WriteIndexTree(ctx)
	if err != nil {
		t.Fatalf("WriteIndexTree: %v", err)
	}

	id, err := s.AmendLastCommit(ctx, tree, "second, amended")
	if err != nil {
		t.Fatalf("AmendLastCommit: %v", err)
	}

	after, err := s.LastCommit(ctx)
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}
	if after.ID != id || after.ID == before.ID {
		t.Errorf("amended id = %s (before %s)", after.ID, before.ID)
	}
	if diff := cmp.Diff(before.Parents, after.Parents); diff != "" {
		t.Errorf("parents changed (-before +after):\n%s", diff)
	}
	if after.Author.String() != before.Author.String() || !after.Author.When.Equal(before.Author.When) {
		t.Errorf("author changed: %v -> %v", before.Author, after.Author)
	}
	if after.Message != "second, amended" {
		t.Errorf("message = %q", after.Message)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("go-git open: %v", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		t.Fatalf("go-git commit: %v", err)
	}
	if _, err := commit.File("c.txt"); err != nil {
		t.Errorf("c.txt missing from amended tree: %v", err)
	}
	if commit.NumParents() != 1 || commit.ParentHashes[0].String() != string(parent.ID) {
		t.Errorf("parents = %v", commit.ParentHashes)
	}
}

func TestAmendWithoutCommit(t *testing.T) {
	dir := testRepo(t)
	s := openStore(t, dir)

	_, err := s.AmendLastCommit(context.Background(), "", "msg")
	if !errors.Is(err, store.ErrNoCommit) {
		t.Fatalf("AmendLastCommit = %v, want ErrNoCommit", err)
	}
}

func TestRenameDetection(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "old.txt", "same content\nacross the rename\n")
	gitCmd(t, dir, "add", "old.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "base")
	gitCmd(t, dir, "mv", "old.txt", "new.txt")

	rows := statusMap(t, openStore(t, dir))
	got := rows["new.txt"]
	if got.Index != change.StatusRenamed || got.OldPath != "old.txt" {
		t.Errorf("new.txt = %+v", got)
	}
	if _, ok := rows["old.txt"]; ok {
		t.Error("old.txt reported separately")
	}

	rows = statusMap(t, openStore(t, dir, WithRenameDetection(false)))
	if rows["new.txt"].Index != change.StatusNew || rows["old.txt"].Index != change.StatusDeleted {
		t.Errorf("without rename detection = %v", rows)
	}
}

func TestWorkTreeRenameDetection(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "old.txt", "same content\nacross the rename\n")
	createFile(t, dir, "gone.txt", "deleted for good\n")
	createFile(t, dir, "empty-a", "")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "base")

	if err := os.Rename(filepath.Join(dir, "old.txt"), filepath.Join(dir, "new.txt")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Rename(filepath.Join(dir, "empty-a"), filepath.Join(dir, "empty-b")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	createFile(t, dir, "fresh.txt", "brand new\n")

	rows, err := openStore(t, dir).QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	unstaged, staged := change.Classify(rows)
	got := change.MustSet(unstaged...).Entries()
	want := []change.FileChange{
		change.New("empty-a", change.StatusDeleted),
		change.New("empty-b", change.StatusNew),
		change.New("fresh.txt", change.StatusNew),
		change.New("gone.txt", change.StatusDeleted),
		change.Renamed("old.txt", "new.txt"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unstaged mismatch (-want +got):\n%s", diff)
	}
	if len(staged) != 0 {
		t.Errorf("staged = %v, want none", staged)
	}

	rows = nil
	for _, r := range statusMap(t, openStore(t, dir, WithRenameDetection(false))) {
		rows = append(rows, r)
	}
	unstaged, _ = change.Classify(rows)
	for _, c := range unstaged {
		if c.IsRename() {
			t.Errorf("rename reported without detection: %v", c)
		}
	}
}

func TestWorkTreeRenameKeepsStagedChange(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "base.txt", "base\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "base")

	createFile(t, dir, "added.txt", "staged then moved\n")
	gitCmd(t, dir, "add", "added.txt")
	if err := os.Rename(filepath.Join(dir, "added.txt"), filepath.Join(dir, "moved.txt")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	rows := statusMap(t, openStore(t, dir))
	if got := rows["added.txt"]; got.Index != change.StatusNew || got.WorkTree != change.StatusUnmodified {
		t.Errorf("added.txt = %+v", got)
	}
	if got := rows["moved.txt"]; got.WorkTree != change.StatusRenamed || got.OldPath != "added.txt" {
		t.Errorf("moved.txt = %+v", got)
	}
}

func TestQueryIndexChangesAgainstTree(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "a\n")
	gitCmd(t, dir, "add", "a.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "first")
	createFile(t, dir, "a.txt", "a changed\n")
	createFile(t, dir, "b.txt", "b\n")
	gitCmd(t, dir, "add", "a.txt", "b.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "second")

	s := openStore(t, dir)
	ctx := context.Background()

	parent, err := s.ParentOfLastCommit(ctx)
	if err != nil || parent == nil {
		t.Fatalf("ParentOfLastCommit = %v, %v", parent, err)
	}

	rows, err := s.QueryIndexChanges(ctx, parent.Tree)
	if err != nil {
		t.Fatalf("QueryIndexChanges: %v", err)
	}
	want := []change.Row{
		{Path: "a.txt", Index: change.StatusModified},
		{Path: "b.txt", Index: change.StatusNew},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	rows, err = s.QueryIndexChanges(ctx, store.EmptyTree)
	if err != nil {
		t.Fatalf("QueryIndexChanges(empty): %v", err)
	}
	if len(rows) != 2 || rows[0].Index != change.StatusNew || rows[1].Index != change.StatusNew {
		t.Errorf("against empty tree = %v", rows)
	}
}

func TestResetPathsFromTree(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "a\n")
	gitCmd(t, dir, "add", "a.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "first")

	createFile(t, dir, "a.txt", "a changed\n")
	createFile(t, dir, "new.txt", "n\n")
	gitCmd(t, dir, "add", "a.txt", "new.txt")

	s := openStore(t, dir)
	ctx := context.Background()
	last, err := s.LastCommit(ctx)
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}

	if err := s.ResetPaths(ctx, []string{"a.txt", "new.txt"}, last.Tree); err != nil {
		t.Fatalf("ResetPaths: %v", err)
	}

	rows := statusMap(t, s)
	if got := rows["a.txt"]; got.Index != change.StatusUnmodified || got.WorkTree != change.StatusModified {
		t.Errorf("a.txt = %+v", got)
	}
	if got := rows["new.txt"]; got.Index != change.StatusUnmodified || got.WorkTree != change.StatusNew {
		t.Errorf("new.txt = %+v", got)
	}
}

func TestFindTreeMissing(t *testing.T) {
	dir := testRepo(t)
	s := openStore(t, dir)

	_, err := s.FindTree(context.Background(), "1234567890123456789012345678901234567890")
	if !errors.Is(err, store.ErrTreeNotFound) {
		t.Fatalf("FindTree = %v, want ErrTreeNotFound", err)
	}
	if id, err := s.FindTree(context.Background(), store.EmptyTree); err != nil || id != store.EmptyTree {
		t.Errorf("FindTree(empty) = %s, %v", id, err)
	}
}

func TestIdentity(t *testing.T) {
	dir := testRepo(t)
	s := openStore(t, dir)

	sig, ok, err := s.Identity(context.Background())
	if err != nil || !ok {
		t.Fatalf("Identity = %v, %v, %v", sig, ok, err)
	}
	if sig.Name != "Test User" || sig.Email != "test@example.com" {
		t.Errorf("Identity = %v", sig)
	}
}

func TestDiff(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "one\ntwo\nthree\n")
	gitCmd(t, dir, "add", "a.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "first")
	createFile(t, dir, "a.txt", "one\n2\nthree\n")
	createFile(t, dir, "new.txt", "x\n")

	s := openStore(t, dir)
	ctx := context.Background()

	hunks, err := s.Diff(ctx, store.DiffRequest{Path: "a.txt", ContextLines: 3})
	if err != nil {
		t.Fatalf("Diff unstaged: %v", err)
	}
	want := []store.Hunk{{
		OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3,
		Lines: []store.Line{
			{Kind: store.LineContext, Content: "one"},
			{Kind: store.LineDeleted, Content: "two"},
			{Kind: store.LineAdded, Content: "2"},
			{Kind: store.LineContext, Content: "three"},
		},
	}}
	if diff := cmp.Diff(want, hunks); diff != "" {
		t.Errorf("unstaged hunks (-want +got):\n%s", diff)
	}

	hunks, err = s.Diff(ctx, store.DiffRequest{Path: "new.txt", Untracked: true, ContextLines: 3})
	if err != nil {
		t.Fatalf("Diff untracked: %v", err)
	}
	if len(hunks) != 1 || len(hunks[0].Lines) != 1 || hunks[0].Lines[0] != (store.Line{Kind: store.LineAdded, Content: "x"}) {
		t.Errorf("untracked hunks = %+v", hunks)
	}

	gitCmd(t, dir, "add", "a.txt")
	last, err := s.LastCommit(ctx)
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}
	hunks, err = s.Diff(ctx, store.DiffRequest{Path: "a.txt", Staged: true, Baseline: last.Tree, ContextLines: 0})
	if err != nil {
		t.Fatalf("Diff staged: %v", err)
	}
	if len(hunks) != 1 {
		t.Fatalf("staged hunks = %+v", hunks)
	}
	if added, deleted := hunks[0].Counts(); added != 1 || deleted != 1 || len(hunks[0].Lines) != 2 {
		t.Errorf("staged hunk = %+v", hunks[0])
	}
}

func TestCommandErrorFromGit(t *testing.T) {
	dir := testRepo(t)
	s := openStore(t, dir)

	err := s.AddPath(context.Background(), "does-not-exist.txt")
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("AddPath = %v, want *CommandError", err)
	}
	if ce.ExitCode == 0 || ce.Stderr == "" {
		t.Errorf("CommandError = %+v", ce)
	}
}
