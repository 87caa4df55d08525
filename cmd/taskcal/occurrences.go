package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskcal/internal/identity"
	"taskcal/internal/ics"
	"taskcal/internal/model"
)

func newOccurrencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List occurrences in a date window",
		Example: `  taskcal occurrences --user u1 --start 2025-09-01 --end 2025-10-31
  taskcal occurrences --user u1 --start 2025-09-01 --end 2025-09-30 --ics > sept.ics`,
		RunE: runOccurrences,
	}
	cmd.Flags().String("start", "", "window start, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().String("end", "", "window end, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().Bool("include-ignored", false, "include ignored occurrences, flagged")
	cmd.Flags().Bool("ics", false, "print an iCalendar feed instead of a table")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runOccurrences(cmd *cobra.Command, _ []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	includeIgnored, _ := cmd.Flags().GetBool("include-ignored")
	asICS, _ := cmd.Flags().GetBool("ics")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	occs, err := a.svc.GetOccurrences(cmd.Context(), user, start, end, includeIgnored)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asICS {
		_, err := fmt.Fprint(out, ics.Export(occs, ics.ExportOptions{Name: "taskcal " + user}))
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSTATE\tTITLE\tKEY")
	for _, o := range occs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", identity.FormatDate(o.At), state(o), o.Title, o.Key)
	}
	return tw.Flush()
}

func state(o model.Occurrence) string {
	var flags []string
	if o.Completed {
		flags = append(flags, "done")
	}
	if o.Phantom {
		flags = append(flags, "phantom")
	}
	if o.Ignored {
		flags = append(flags, "ignored")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
