package events

import (
	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/event/topic"
)

// Workspace event topics.
const (
	// TopicWorkspace is the root of every workspace topic.
	TopicWorkspace topic.Topic = "workspace"

	// TopicStagedAdded is published when a path appears on the staged side.
	TopicStagedAdded topic.Topic = "workspace.staged.added"

	// TopicStagedRemoved is published when a path leaves the staged side.
	TopicStagedRemoved topic.Topic = "workspace.staged.removed"

	// TopicStagedUpdated is published when a staged path changes status or old path.
	TopicStagedUpdated topic.Topic = "workspace.staged.updated"

	// TopicUnstagedAdded is published when a path appears on the unstaged side.
	TopicUnstagedAdded topic.Topic = "workspace.unstaged.added"

	// TopicUnstagedRemoved is published when a path leaves the unstaged side.
	TopicUnstagedRemoved topic.Topic = "workspace.unstaged.removed"

	// TopicUnstagedUpdated is published when an unstaged path changes status or old path.
	TopicUnstagedUpdated topic.Topic = "workspace.unstaged.updated"

	// TopicCommitted is published after a new commit is created.
	TopicCommitted topic.Topic = "workspace.committed"

	// TopicAmended is published after the last commit is rewritten.
	TopicAmended topic.Topic = "workspace.amended"

	// TopicRefreshed is published once at the end of a refresh or mode switch.
	TopicRefreshed topic.Topic = "workspace.refreshed"

	// TopicAllChanges matches every per-row change event.
	TopicAllChanges topic.Topic = "workspace.*.*"
)

// ChangeTopics returns the added, removed and updated topics for side.
func ChangeTopics(side change.Side) (added, removed, updated topic.Topic) {
	switch side {
	case change.Staged:
		return TopicStagedAdded, TopicStagedRemoved, TopicStagedUpdated
	case change.Unstaged:
		return TopicUnstagedAdded, TopicUnstagedRemoved, TopicUnstagedUpdated
	default:
		panic("events: unknown side " + side.String())
	}
}

// SideTopics returns the pattern matching every change event for side.
func SideTopics(side change.Side) topic.Topic {
	return TopicWorkspace.Child(side.String()).Child(topic.WildcardSingle)
}

// ChangeAdded reports a new row at At.
type ChangeAdded struct {
	Side   change.Side
	At     int
	Change change.FileChange
}

// ChangeRemoved reports that the row at At, holding Change, is gone.
type ChangeRemoved struct {
	Side   change.Side
	At     int
	Change change.FileChange
}

// ChangeUpdated reports that the row at At now holds Change instead of
// Previous. The path is unchanged.
type ChangeUpdated struct {
	Side     change.Side
	At       int
	Previous change.FileChange
	Change   change.FileChange
}

// Committed is published after a commit is created.
type Committed struct {
	// Commit is the new commit ID.
	Commit string

	// Parents are the commit's parent IDs; empty for the first commit.
	Parents []string

	Message string
}

// AmendedCommit is published after the last commit is replaced.
type AmendedCommit struct {
	// Commit is the replacement commit ID.
	Commit string

	// Replaced is the ID of the commit that was rewritten.
	Replaced string

	Message string
}

// Refreshed is published after both change lists have been recomputed.
type Refreshed struct {
	Mode     change.Mode
	Unstaged change.Set
	Staged   change.Set
}
