package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abelbrown/codesim/internal/history"
	"github.com/abelbrown/codesim/internal/score"
)

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent comparison runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := history.Open(c.cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No comparisons recorded yet.")
				return nil
			}

			table := tablewriter.NewWriter(w)
			table.Header("Run", "Started", "Mode", "Files", "Result")
			for _, r := range runs {
				err := table.Append([]string{
					shortRunID(r.ID),
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Mode.String(),
					runFiles(r),
					runResult(r),
				})
				if err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print the outcome of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := history.Open(c.cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := findRun(cmd, st, args[0])
			if err != nil {
				return err
			}
			if run.Failed() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s failed: %s\n", run.ID, run.Err)
				return nil
			}
			return writeOutcome(cmd.OutOrStdout(), run.Outcome(), run.Filters)
		},
	}
	cmd.AddCommand(show)
	return cmd
}

// findRun accepts a full run id or the short prefix the list prints.
func findRun(cmd *cobra.Command, st *history.Store, id string) (history.Run, error) {
	run, err := st.Get(cmd.Context(), id)
	if err == nil || len(id) >= 36 {
		return run, err
	}
	runs, rerr := st.Recent(cmd.Context(), 1000)
	if rerr != nil {
		return history.Run{}, rerr
	}
	var match []history.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return history.Run{}, err
	case 1:
		return match[0], nil
	default:
		return history.Run{}, fmt.Errorf("run id prefix %q is ambiguous (%d runs)", id, len(match))
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runFiles(r history.Run) string {
	ids := make([]string, 0, len(r.OtherIDs)+1)
	ids = append(ids, strconv.FormatInt(r.TargetID, 10))
	for _, id := range r.OtherIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	s := strings.Join(ids, ", ")
	if len(s) > 30 {
		s = s[:27] + "..."
	}
	return s
}

func runResult(r history.Run) string {
	switch {
	case r.Failed():
		return "error: " + r.Err
	case r.Score != nil:
		tier, _ := score.Classify(*r.Score)
		return paint(tier, score.Format(*r.Score))
	default:
		return fmt.Sprintf("%d results", len(r.Results))
	}
}
