package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/slotplan/core/runlog"
)

var historyOpts struct {
	algorithm string
	since     string
	runID     string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past solve runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyOpts.algorithm, "algorithm", "", "only runs of this strategy")
	f.StringVar(&historyOpts.since, "since", "", "only runs after this RFC3339 time or duration ago (e.g. 24h)")
	f.StringVar(&historyOpts.runID, "run", "", "only the run with this id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	since, err := parseSince(historyOpts.since)
	if err != nil {
		return err
	}
	svc, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	recs, err := svc.History(cmd.Context(), runlog.Query{
		Start:     since,
		Algorithm: historyOpts.algorithm,
		RunID:     historyOpts.runID,
	})
	if err != nil {
		return fmt.Errorf("query run log: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tALGORITHM\tROOMS\tSCHEDULED\tUNSCHEDULED\tINVALID\tDURATION\tERROR")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%d\t%d\t%s\t%s\n",
			r.RunID, r.Timestamp.Format(time.RFC3339), r.Algorithm, r.Rooms,
			r.Scheduled, r.Tasks, r.Unscheduled, r.Invalid,
			time.Duration(r.DurationMS)*time.Millisecond, r.ErrorCode)
	}
	return tw.Flush()
}
