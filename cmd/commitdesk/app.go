package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/config"
	"github.com/dshills/commitdesk/internal/logging"
	"github.com/dshills/commitdesk/internal/store"
	"github.com/dshills/commitdesk/internal/store/gitcli"
	"github.com/dshills/commitdesk/internal/workspace"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	repo     string
	config   string
	amend    bool
	json     bool
	memory   bool
	color    string
	logLevel string
}

// storeOpener builds the backing store for the resolved configuration.
type storeOpener func(ctx context.Context, cfg config.Config, memory bool, logger logging.Logger) (store.Store, error)

type app struct {
	flags globalFlags
	open  storeOpener
}

// session is everything a subcommand needs after flags are parsed.
type session struct {
	cfg     config.Config
	logger  logging.Logger
	store   store.Store
	ws      *workspace.Workspace
	printer *printer
}

// openStore is the production storeOpener.
func openStore(ctx context.Context, cfg config.Config, memory bool, logger logging.Logger) (store.Store, error) {
	if memory {
		return demoStore(ctx)
	}
	st, err := gitcli.Open(cfg.Repository,
		gitcli.WithBinary(cfg.GitBinary),
		gitcli.WithLogger(logger),
		gitcli.WithRenameDetection(cfg.Status.DetectRenames),
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// loadConfig resolves defaults, the config file, the environment and
// flags, in that order.
func (a *app) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.flags.config)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if a.flags.repo != "" {
		cfg.Repository = a.flags.repo
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newPrinter builds the printer for cmd without opening the repository.
func (a *app) newPrinter(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	return newPrinter(out, a.flags.json, resolveColorMode(a.flags.color, isTTY(out))).
		withStderr(cmd.ErrOrStderr())
}

// session opens the workspace for cmd. Failures are reported through the
// printer before being returned.
func (a *app) session(cmd *cobra.Command) (*session, error) {
	p := a.newPrinter(cmd)
	s, err := a.openSession(cmd.Context(), cmd, p)
	if err != nil {
		p.Error(err)
		return nil, err
	}
	return s, nil
}

func (a *app) openSession(ctx context.Context, cmd *cobra.Command, p *printer) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, newUserError("invalid configuration", err)
	}

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	lc.Component = "commitdesk"
	logger := logging.New(lc)

	st, err := a.open(ctx, cfg, a.flags.memory, logger)
	if err != nil {
		if errors.Is(err, store.ErrNotRepository) {
			return nil, newUserError("opening repository", err)
		}
		return nil, newSystemError("opening repository", err)
	}

	opts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithContextLines(cfg.Diff.ContextLines),
	}
	if cfg.Identity.IsSet() {
		opts = append(opts, workspace.WithIdentity(store.Signature{
			Name:  cfg.Identity.Name,
			Email: cfg.Identity.Email,
		}))
	}

	ws, err := workspace.Open(ctx, st, opts...)
	if err != nil {
		return nil, classify(err)
	}
	if a.flags.amend {
		if err := ws.EnableAmendMode(ctx); err != nil {
			return nil, classify(err)
		}
	}

	return &session{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		ws:      ws,
		printer: p,
	}, nil
}

// fail reports err through the session printer and returns it classified
// for the exit code.
func (s *session) fail(err error) error {
	err = classify(err)
	s.printer.Error(err)
	return err
}

func (s *session) describe() string {
	if s.ws.Mode() == workspace.Amend {
		return fmt.Sprintf("%s (amend mode)", s.store.Root())
	}
	return s.store.Root()
}
