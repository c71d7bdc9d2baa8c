package change

// Side identifies which of the two change lists an entry belongs to.
type Side int

const (
	// Unstaged holds differences between the index and the working copy.
	Unstaged Side = iota
	// Staged holds differences between the baseline tree and the index.
	Staged
)

// String returns the string representation of a Side.
func (s Side) String() string {
	switch s {
	case Unstaged:
		return "unstaged"
	case Staged:
		return "staged"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Staged {
		return Unstaged
	}
	return Staged
}

// Row is one raw status row from the backing store. Index describes the
// baseline-to-index difference and WorkTree the index-to-working-copy
// difference. OldPath belongs to whichever side reports StatusRenamed.
type Row struct {
	Path     string
	OldPath  string
	Index    Status
	WorkTree Status
}

// Classify groups rows into unstaged and staged changes. A row lands on each
// side that shows a difference; unmerged rows are reported as unstaged only.
// The results are unsorted.
func Classify(rows []Row) (unstaged, staged []FileChange) {
	for _, r := range rows {
		if r.Index == StatusUnmerged || r.WorkTree == StatusUnmerged {
			unstaged = append(unstaged, FileChange{Path: r.Path, Status: StatusUnmerged})
			continue
		}
		if r.WorkTree != StatusUnmodified {
			unstaged = append(unstaged, r.change(r.WorkTree))
		}
		if r.Index != StatusUnmodified {
			staged = append(staged, r.change(r.Index))
		}
	}
	return unstaged, staged
}

// IndexChanges returns the staged side of rows only.
func IndexChanges(rows []Row) []FileChange {
	_, staged := Classify(rows)
	return staged
}

func (r Row) change(s Status) FileChange {
	c := FileChange{Path: r.Path, Status: s}
	if s == StatusRenamed {
		c.OldPath = r.OldPath
	}
	return c
}

// Mode selects the baseline the staged side is computed against.
type Mode int

const (
	// ModeNormal stages against the last commit's tree.
	ModeNormal Mode = iota
	// ModeAmend stages against the tree of the last commit's parent, so the
	// staged side shows what the last commit itself introduced.
	ModeAmend
)

// String returns the string representation of a Mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAmend:
		return "amend"
	default:
		return "unknown"
	}
}
