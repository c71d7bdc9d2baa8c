package main

import (
	"context"
	"time"

	"github.com/dshills/commitdesk/internal/store"
	"github.com/dshills/commitdesk/internal/store/memstore"
)

// demoStore returns an in-memory repository with one commit and a few
// pending changes, for trying the commands without a git checkout.
func demoStore(ctx context.Context) (*memstore.Store, error) {
	st := memstore.New(
		memstore.WithIdentity("Demo User", "demo@example.com"),
		memstore.WithRoot("memory://demo"),
	)

	st.WriteFile("README.md", "# demo\n")
	st.WriteFile("main.go", "package main\n\nfunc main() {}\n")
	st.WriteFile("util.go", "package main\n")
	for _, p := range []string{"README.md", "main.go", "util.go"} {
		if err := st.AddPath(ctx, p); err != nil {
			return nil, err
		}
	}
	tree, err := st.WriteIndexTree(ctx)
	if err != nil {
		return nil, err
	}
	sig := store.Signature{
		Name:  "Demo User",
		Email: "demo@example.com",
		When:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	if _, err := st.CreateCommit(ctx, store.CommitRequest{
		Tree:      tree,
		Author:    sig,
		Committer: sig,
		Message:   "Initial commit",
	}); err != nil {
		return nil, err
	}

	st.WriteFile("main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	st.WriteFile("notes.txt", "todo\n")
	st.RemoveFile("util.go")
	return st, nil
}
