package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/tracker"
)

func newInterviewCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interview",
		GroupID: "tracker",
		Short:   "Show or record the interview of an application",
	}
	cmd.AddCommand(newInterviewShowCmd(env), newInterviewSaveCmd(env))
	return cmd
}

func newInterviewShowCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Fetch the latest interview of an application",
		Args:  cobra.ExactArgs(1),
		RunE: env.run(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			lookup := a.store.Interviews().FetchOne(ctx, id)
			switch lookup.Status {
			case tracker.LookupFound:
				printInterview(a.out, *lookup.Interview)
			case tracker.LookupNotFound:
				fmt.Fprintf(a.out, "No interview recorded for application %d\n", id)
			default:
				return lookup.Err
			}
			return nil
		}),
	}
}

func newInterviewSaveCmd(env *cliEnv) *cobra.Command {
	var iv model.Interview

	cmd := &cobra.Command{
		Use:     "save <id>",
		Short:   "Record an interview, replacing the previous one",
		Example: "  jobpilot interview save 3 --date 2025-03-01 --interviewer Kim --notes \"system design\"",
		Args:    cobra.ExactArgs(1),
		RunE: env.run(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.Interviews().Save(ctx, id, iv); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved interview for application %d\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&iv.Date, "date", "", "interview date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&iv.Interviewer, "interviewer", "", "who you are meeting")
	cmd.Flags().StringVar(&iv.PrepNotes, "notes", "", "preparation notes")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func printInterview(out io.Writer, iv model.Interview) {
	fmt.Fprintf(out, "Application: %d\n", iv.ApplicationID)
	fmt.Fprintf(out, "Date:        %s\n", iv.Date)
	fmt.Fprintf(out, "Interviewer: %s\n", iv.Interviewer)
	if iv.PrepNotes != "" {
		fmt.Fprintf(out, "Prep notes:  %s\n", iv.PrepNotes)
	}
}
