package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/jobpilot/internal/model"
)

func newListCmd(env *cliEnv) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "tracker",
		Short:   "Fetch and list your applications with their latest interview",
		Args:    cobra.NoArgs,
		RunE: env.run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.store.FetchApplications(ctx); err != nil {
				return err
			}

			apps := a.store.Applications()
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(apps)
			}
			printApplications(a.out, apps)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printApplications(out io.Writer, apps []model.Application) {
	if len(apps) == 0 {
		fmt.Fprintln(out, "No applications yet.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tAPPLIED\tSTATUS\tINTERVIEW")
	for _, job := range apps {
		interview := "-"
		if job.Interview != nil {
			interview = strings.TrimSpace(job.Interview.Date + " " + job.Interview.Interviewer)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			job.ID, job.Title, job.Company, job.DateApplied, job.Status, interview)
	}
	_ = tw.Flush()
}

func newUpdateCmd(env *cliEnv) *cobra.Command {
	var title, company, dateApplied, status, notes string
	var cmd *cobra.Command

	cmd = &cobra.Command{
		Use:     "update <id>",
		GroupID: "tracker",
		Short:   "Change fields of an application",
		Example: "  jobpilot update 3 --status offer --notes \"call back Friday\"",
		Args:    cobra.ExactArgs(1),
		RunE: env.run(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			// Only flags the user actually passed end up in the patch, so
			// --notes "" clears notes while an omitted --notes leaves them.
			var patch model.ApplicationPatch
			set := func(name string, value string, field **string) {
				if cmd.Flags().Changed(name) {
					*field = &value
				}
			}
			set("title", title, &patch.Title)
			set("company", company, &patch.Company)
			set("date-applied", dateApplied, &patch.DateApplied)
			set("status", status, &patch.Status)
			set("notes", notes, &patch.Notes)
			if patch.IsEmpty() {
				return errors.New("nothing to update; pass at least one of --title, --company, --date-applied, --status or --notes")
			}

			if err := a.store.UpdateApplication(ctx, id, patch); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated application %d\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&dateApplied, "date-applied", "", "date applied (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "application status")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newDescribeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:     "describe <id> <text>...",
		GroupID: "tracker",
		Short:   "Set the job description of an application",
		Long: `Set the job description of an application.

Pass "-" as the text to read the description from stdin.`,
		Args: cobra.MinimumNArgs(2),
		RunE: env.run(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			text := strings.Join(args[1:], " ")
			if text == "-" {
				raw, err := io.ReadAll(a.in)
				if err != nil {
					return fmt.Errorf("reading description: %w", err)
				}
				text = string(raw)
			}

			if err := a.store.UpdateJobDescription(ctx, id, text); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated job description of application %d\n", id)
			return nil
		}),
	}
}

func newDeleteCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		GroupID: "tracker",
		Short:   "Delete an application and its interviews",
		Args:    cobra.ExactArgs(1),
		RunE: env.run(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteApplication(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted application %d\n", id)
			return nil
		}),
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid application id %q", raw)
	}
	return id, nil
}
