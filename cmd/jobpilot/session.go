package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/jobpilot/internal/model"
)

func newSignupCmd(env *cliEnv) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:     "signup",
		GroupID: "session",
		Short:   "Create an account and log in",
		Long: `Create an account and log in.

Without --password the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: env.run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := passwordOrStdin(password, a.in)
			if err != nil {
				return err
			}
			if err := a.manager.Signup(ctx, model.SignupRequest{Email: email, Password: pw, Name: name}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed up and logged in as %s\n", describeUser(a.manager.User()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(env *cliEnv) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:     "login",
		GroupID: "session",
		Short:   "Log in and remember the session",
		Long: `Log in and remember the session for later commands.

Without --password the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: env.run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := passwordOrStdin(password, a.in)
			if err != nil {
				return err
			}
			if err := a.manager.Login(ctx, model.Credentials{Email: email, Password: pw}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", describeUser(a.manager.User()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "session",
		Short:   "Forget the stored session",
		Args:    cobra.NoArgs,
		RunE: env.run(func(ctx context.Context, a *app, _ []string) error {
			a.manager.Logout(ctx)
			fmt.Fprintln(a.out, "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "session",
		Short:   "Show the logged-in user",
		Args:    cobra.NoArgs,
		RunE: env.run(func(_ context.Context, a *app, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, describeUser(a.manager.User()))
			return nil
		}),
	}
}

func describeUser(u *model.User) string {
	if u == nil {
		return "(anonymous)"
	}
	if u.Name != "" {
		return fmt.Sprintf("%s <%s> (id %d)", u.Name, u.Email, u.ID)
	}
	return fmt.Sprintf("%s (id %d)", u.Email, u.ID)
}

// passwordOrStdin returns flagValue, or the first line of in when the flag
// was not given, so passwords can be piped instead of landing in shell history.
func passwordOrStdin(flagValue string, in io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
