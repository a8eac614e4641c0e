// Command jobpilot is a terminal front end for the application tracker.
//
//	jobpilot signup --email me@example.com --name Me
//	jobpilot login --email me@example.com
//	jobpilot list
//	jobpilot update 3 --status interviewing
//	jobpilot describe 3 "Go, Postgres, on-call"
//	jobpilot interview save 3 --date 2025-03-01 --interviewer Kim
//	jobpilot interview show 3
//	jobpilot delete 3
//	jobpilot logout
//
// The session survives between invocations in a small SQLite file
// (JOBPILOT_SESSION_DB, default ~/.jobpilot/session.db) and is restored
// before every command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
