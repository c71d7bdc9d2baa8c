package gitcli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

// emptyBlob is the id of a zero-length blob. Empty files are never paired
// as renames.
const emptyBlob = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

// QueryStatus reports every path that differs between HEAD, the index and
// the working copy. With rename detection on, renames are reported on both
// sides, including files moved in the working copy without git mv.
func (s *Store) QueryStatus(ctx context.Context) ([]change.Row, error) {
	args := []string{"status", "--porcelain=v2", "-z", "--untracked-files=all"}
	if s.renames {
		args = append(args, "--find-renames")
	} else {
		args = append(args, "--no-renames")
	}

	out, err := s.git.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	rows, deleted, err := parseStatus(out)
	if err != nil || !s.renames {
		return rows, err
	}
	return s.pairWorkTreeRenames(ctx, rows, deleted)
}

// parseStatus parses NUL-terminated porcelain v2 records. Alongside the
// rows it returns the index blob id of every path deleted from the working
// copy.
func parseStatus(out string) ([]change.Row, map[string]string, error) {
	records := splitNUL(out)

	var rows []change.Row
	deleted := make(map[string]string)
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if rec == "" {
			continue
		}

		switch rec[0] {
		case '#', '!':
			continue

		case '1':
			// 1 XY sub mH mI mW hH hI path
			f := strings.SplitN(rec, " ", 9)
			if len(f) < 9 || len(f[1]) != 2 {
				return nil, nil, fmt.Errorf("malformed status record %q", rec)
			}
			row := change.Row{
				Path:     f[8],
				Index:    statusFromCode(f[1][0]),
				WorkTree: statusFromCode(f[1][1]),
			}
			if row.WorkTree == change.StatusDeleted {
				deleted[row.Path] = f[7]
			}
			rows = append(rows, row)

		case '2':
			// 2 XY sub mH mI mW hH hI Xscore path NUL origPath
			f := strings.SplitN(rec, " ", 10)
			if len(f) < 10 || len(f[1]) != 2 || i+1 >= len(records) {
				return nil, nil, fmt.Errorf("malformed rename record %q", rec)
			}
			i++
			rows = append(rows, change.Row{
				Path:     f[9],
				OldPath:  records[i],
				Index:    statusFromCode(f[1][0]),
				WorkTree: statusFromCode(f[1][1]),
			})

		case 'u':
			// u XY sub m1 m2 m3 mW h1 h2 h3 path
			f := strings.SplitN(rec, " ", 11)
			if len(f) < 11 {
				return nil, nil, fmt.Errorf("malformed unmerged record %q", rec)
			}
			rows = append(rows, change.Row{
				Path:     f[10],
				Index:    change.StatusUnmerged,
				WorkTree: change.StatusUnmerged,
			})

		case '?':
			if len(rec) < 3 {
				return nil, nil, fmt.Errorf("malformed untracked record %q", rec)
			}
			rows = append(rows, change.Row{Path: rec[2:], WorkTree: change.StatusNew})

		default:
			return nil, nil, fmt.Errorf("unknown status record %q", rec)
		}
	}
	return rows, deleted, nil
}

// pairWorkTreeRenames folds a working-copy deletion and an untracked file
// with identical content into one renamed row, the way status pairs renames
// in the index. Untracked files are hashed with hash-object so clean
// filters apply as they would on add.
func (s *Store) pairWorkTreeRenames(ctx context.Context, rows []change.Row, deleted map[string]string) ([]change.Row, error) {
	if len(deleted) == 0 {
		return rows, nil
	}

	var untracked []string
	for _, r := range rows {
		if r.Index == change.StatusUnmodified && r.WorkTree == change.StatusNew {
			untracked = append(untracked, r.Path)
		}
	}
	if len(untracked) == 0 {
		return rows, nil
	}

	out, err := s.git.run(ctx, append([]string{"hash-object", "--"}, untracked...)...)
	if err != nil {
		return nil, err
	}
	ids := strings.Fields(out)
	if len(ids) != len(untracked) {
		return nil, fmt.Errorf("hash-object returned %d ids for %d paths", len(ids), len(untracked))
	}

	byBlob := make(map[string][]string, len(deleted))
	for _, p := range slices.Sorted(maps.Keys(deleted)) {
		if blob := deleted[p]; blob != emptyBlob {
			byBlob[blob] = append(byBlob[blob], p)
		}
	}

	origin := make(map[string]string)
	paired := make(map[string]bool)
	for i, p := range untracked {
		candidates := byBlob[ids[i]]
		if len(candidates) == 0 {
			continue
		}
		origin[p] = candidates[0]
		paired[candidates[0]] = true
		byBlob[ids[i]] = candidates[1:]
	}
	if len(origin) == 0 {
		return rows, nil
	}

	kept := rows[:0]
	for _, r := range rows {
		if paired[r.Path] {
			r.WorkTree = change.StatusUnmodified
			if r.Index == change.StatusUnmodified {
				continue
			}
		} else if old, ok := origin[r.Path]; ok {
			r.OldPath = old
			r.WorkTree = change.StatusRenamed
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// QueryIndexChanges lists the differences between baseline and the index.
func (s *Store) QueryIndexChanges(ctx context.Context, baseline store.TreeID) ([]change.Row, error) {
	args := []string{"diff-index", "--cached", "-z", "--name-status"}
	if s.renames {
		args = append(args, "-M")
	} else {
		args = append(args, "--no-renames")
	}
	args = append(args, string(baseline), "--")

	out, err := s.git.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out)
}

// parseNameStatus parses "diff --name-status -z" output: a status token
// followed by one path, or two for renames and copies.
func parseNameStatus(out string) ([]change.Row, error) {
	tokens := splitNUL(out)

	var rows []change.Row
	for i := 0; i < len(tokens); i++ {
		code := tokens[i]
		if code == "" {
			continue
		}
		if i+1 >= len(tokens) {
			return nil, fmt.Errorf("truncated name-status output after %q", code)
		}

		switch code[0] {
		case 'R', 'C':
			if i+2 >= len(tokens) {
				return nil, fmt.Errorf("truncated name-status output after %q", code)
			}
			row := change.Row{Path: tokens[i+2], Index: statusFromCode(code[0])}
			if code[0] == 'R' {
				row.OldPath = tokens[i+1]
			}
			rows = append(rows, row)
			i += 2
		default:
			rows = append(rows, change.Row{Path: tokens[i+1], Index: statusFromCode(code[0])})
			i++
		}
	}
	return rows, nil
}

// statusFromCode maps a porcelain status letter. Copies have no old path
// in the change model and are reported as new files.
func statusFromCode(c byte) change.Status {
	switch c {
	case 'M':
		return change.StatusModified
	case 'T':
		return change.StatusTypeChanged
	case 'A', 'C':
		return change.StatusNew
	case 'D':
		return change.StatusDeleted
	case 'R':
		return change.StatusRenamed
	case 'U':
		return change.StatusUnmerged
	default:
		return change.StatusUnmodified
	}
}

func splitNUL(s string) []string {
	s = strings.TrimSuffix(s, "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x00")
}
