package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/jobpilot/internal/config"
	"github.com/sakif/jobpilot/internal/remote"
	"github.com/sakif/jobpilot/internal/session"
	"github.com/sakif/jobpilot/internal/tracker"
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in; run 'jobpilot login' first")

// app is the client core wired for one command invocation.
type app struct {
	cfg       *config.Client
	logger    *slog.Logger
	persister session.Persister
	closer    io.Closer
	manager   *session.Manager
	store     *tracker.Store

	in  io.Reader
	out io.Writer
}

// newApp loads configuration, opens the session store and restores the
// persisted session. Restore never fails on a bad token; it only fails when
// the session store itself cannot be read.
func newApp(ctx context.Context, in io.Reader, out, errOut io.Writer) (*app, error) {
	// A missing .env is normal; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	a := &app{cfg: cfg, logger: logger, in: in, out: out}
	if err := a.openPersister(); err != nil {
		return nil, err
	}

	state := session.NewState()
	client, err := remote.New(remote.Config{
		BaseURL:    cfg.APIURL,
		AuthPrefix: cfg.AuthPrefix,
		Timeout:    cfg.Timeout,
	}, state, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.manager = session.NewManager(state, client, a.persister, logger, session.Options{
		RejectExpiredTokens: cfg.RejectExpiredTokens,
	})
	a.store = tracker.NewStore(client, state, logger, tracker.Options{OwnerFilter: cfg.OwnerFilter})

	if err := a.manager.Restore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openPersister() error {
	if a.cfg.InMemorySession() {
		a.persister = session.NewMemoryPersister()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.SessionDB), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	p, err := session.OpenSQLitePersister(a.cfg.SessionDB)
	if err != nil {
		return err
	}
	a.persister = p
	a.closer = p
	return nil
}

func (a *app) close() {
	if a.closer == nil {
		return
	}
	if err := a.closer.Close(); err != nil {
		a.logger.Warn("closing session store", slog.String("error", err.Error()))
	}
}

func (a *app) requireSession() error {
	if !a.manager.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// cliEnv carries the process I/O every command builds its app from.
type cliEnv struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// run adapts a command body to cobra's RunE: it builds the app for this
// invocation, runs fn and always closes the session store.
func (e *cliEnv) run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), e.in, e.out, e.errOut)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, args)
	}
}
