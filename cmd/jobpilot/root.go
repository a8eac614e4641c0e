package main

import (
	"io"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. I/O is injected so tests can drive the
// CLI in-process.
func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "jobpilot",
		Short: "Track job applications and interviews",
		Long: `jobpilot keeps your job applications and interviews in sync with the
tracker backend.

Configuration comes from the environment (or a .env file):
  JOBPILOT_API_URL        backend origin (default http://localhost:8080)
  JOBPILOT_AUTH_PREFIX    prefix for /auth routes, e.g. /api
  JOBPILOT_SESSION_DB     session file, or "memory" (default ~/.jobpilot/session.db)
  JOBPILOT_OWNER_FILTER   strict | show-all
  LOG_LEVEL               debug | info | warn | error`,
		SilenceUsage: true,
	}
	env := &cliEnv{in: in, out: out, errOut: errOut}

	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "tracker", Title: "Applications:"},
	)

	root.AddCommand(
		newSignupCmd(env),
		newLoginCmd(env),
		newLogoutCmd(env),
		newWhoamiCmd(env),
		newListCmd(env),
		newUpdateCmd(env),
		newDescribeCmd(env),
		newDeleteCmd(env),
		newInterviewCmd(env),
	)
	return root
}
