package gitcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/commitdesk/internal/store"
)

// LastCommit returns the commit HEAD points at, or nil on an unborn branch.
func (s *Store) LastCommit(ctx context.Context) (*store.Commit, error) {
	id, err := s.resolveCommit(ctx, "HEAD")
	if err != nil || id == "" {
		return nil, err
	}
	return s.readCommit(ctx, id)
}

// ParentOfLastCommit returns the first parent of HEAD, or nil when HEAD is
// a root commit or unborn.
func (s *Store) ParentOfLastCommit(ctx context.Context) (*store.Commit, error) {
	last, err := s.LastCommit(ctx)
	if err != nil || last == nil || len(last.Parents) == 0 {
		return nil, err
	}
	return s.readCommit(ctx, last.Parents[0])
}

// CreateCommit writes a commit from req and advances HEAD to it.
func (s *Store) CreateCommit(ctx context.Context, req store.CommitRequest) (store.CommitID, error) {
	old, err := s.resolveCommit(ctx, "HEAD")
	if err != nil {
		return "", err
	}

	id, err := s.commitTree(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.updateHead(ctx, id, old, "commit", req.Message); err != nil {
		return "", err
	}
	return id, nil
}

// AmendLastCommit replaces HEAD with a commit carrying the same parents,
// author and committer.
func (s *Store) AmendLastCommit(ctx context.Context, tree store.TreeID, message string) (store.CommitID, error) {
	last, err := s.LastCommit(ctx)
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", store.ErrNoCommit
	}

	req := store.CommitRequest{
		Parents:   last.Parents,
		Tree:      last.Tree,
		Author:    last.Author,
		Committer: last.Committer,
		Message:   last.Message,
	}
	if tree != "" {
		req.Tree = tree
	}
	if message != "" {
		req.Message = message
	}

	id, err := s.commitTree(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.updateHead(ctx, id, last.ID, "commit (amend)", req.Message); err != nil {
		return "", err
	}
	return id, nil
}

// Identity returns user.name and user.email. The bool is false when either
// is unset.
func (s *Store) Identity(ctx context.Context) (store.Signature, bool, error) {
	name, err := s.configValue(ctx, "user.name")
	if err != nil {
		return store.Signature{}, false, err
	}
	email, err := s.configValue(ctx, "user.email")
	if err != nil {
		return store.Signature{}, false, err
	}

	sig := store.Signature{Name: name, Email: email}
	return sig, sig.Valid(), nil
}

func (s *Store) configValue(ctx context.Context, key string) (string, error) {
	out, err := s.git.do(ctx, call{
		args:    []string{"config", "--get", key},
		okCodes: []int{1},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// resolveCommit returns "" when rev does not name a commit.
func (s *Store) resolveCommit(ctx context.Context, rev string) (store.CommitID, error) {
	out, err := s.git.do(ctx, call{
		args:    []string{"rev-parse", "--verify", "-q", rev + "^{commit}"},
		okCodes: []int{1},
	})
	if err != nil {
		return "", err
	}
	return store.CommitID(strings.TrimSpace(out)), nil
}

func (s *Store) commitTree(ctx context.Context, req store.CommitRequest) (store.CommitID, error) {
	args := []string{"commit-tree", string(req.Tree)}
	for _, p := range req.Parents {
		args = append(args, "-p", string(p))
	}
	args = append(args, "-F", "-")

	msg := req.Message
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	out, err := s.git.do(ctx, call{
		args: args,
		env: []string{
			"GIT_AUTHOR_NAME=" + req.Author.Name,
			"GIT_AUTHOR_EMAIL=" + req.Author.Email,
			"GIT_AUTHOR_DATE=" + formatDate(req.Author.When),
			"GIT_COMMITTER_NAME=" + req.Committer.Name,
			"GIT_COMMITTER_EMAIL=" + req.Committer.Email,
			"GIT_COMMITTER_DATE=" + formatDate(req.Committer.When),
		},
		stdin: strings.NewReader(msg),
	})
	if err != nil {
		return "", err
	}
	return store.CommitID(strings.TrimSpace(out)), nil
}

// updateHead moves HEAD, and the branch it points at, from old to id.
func (s *Store) updateHead(ctx context.Context, id, old store.CommitID, action, message string) error {
	expect := string(old)
	if expect == "" {
		expect = nullID
	}
	subject, _, _ := strings.Cut(message, "\n")
	_, err := s.git.run(ctx, "update-ref", "-m", action+": "+subject, "HEAD", string(id), expect)
	return err
}

func (s *Store) readCommit(ctx context.Context, id store.CommitID) (*store.Commit, error) {
	out, err := s.git.run(ctx, "cat-file", "commit", string(id))
	if err != nil {
		return nil, err
	}
	c, err := parseCommit(out)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", id.Short(), err)
	}
	c.ID = id
	return c, nil
}

// parseCommit parses a raw commit object.
func parseCommit(raw string) (*store.Commit, error) {
	header, message, _ := strings.Cut(raw, "\n\n")

	c := &store.Commit{Message: strings.TrimSuffix(message, "\n")}
	for _, line := range strings.Split(header, "\n") {
		// Continuation lines belong to multi-line headers such as gpgsig.
		if strings.HasPrefix(line, " ") {
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "tree":
			c.Tree = store.TreeID(value)
		case "parent":
			c.Parents = append(c.Parents, store.CommitID(value))
		case "author":
			sig, err := parseSignature(value)
			if err != nil {
				return nil, fmt.Errorf("author: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := parseSignature(value)
			if err != nil {
				return nil, fmt.Errorf("committer: %w", err)
			}
			c.Committer = sig
		}
	}

	if c.Tree == "" {
		return nil, fmt.Errorf("missing tree header")
	}
	return c, nil
}

// parseSignature parses "Name <email> 1700000000 +0100".
func parseSignature(v string) (store.Signature, error) {
	open := strings.LastIndex(v, " <")
	end := strings.LastIndex(v, ">")
	if open < 0 || end < open {
		return store.Signature{}, fmt.Errorf("malformed signature %q", v)
	}

	sig := store.Signature{
		Name:  v[:open],
		Email: v[open+2 : end],
	}

	fields := strings.Fields(v[end+1:])
	if len(fields) != 2 {
		return store.Signature{}, fmt.Errorf("malformed signature date %q", v)
	}
	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return store.Signature{}, fmt.Errorf("signature time: %w", err)
	}
	zone, err := parseZone(fields[1])
	if err != nil {
		return store.Signature{}, err
	}
	sig.When = time.Unix(sec, 0).In(zone)
	return sig, nil
}

func parseZone(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("malformed time zone %q", tz)
	}
	hh, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, fmt.Errorf("time zone hours: %w", err)
	}
	mm, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, fmt.Errorf("time zone minutes: %w", err)
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), nil
}

// formatDate renders git's internal "<unix> <+hhmm>" date format.
func formatDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return strconv.FormatInt(t.Unix(), 10) + " " + t.Format("-0700")
}
