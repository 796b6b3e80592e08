package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sadopc/timekeep/internal/stats"
	"github.com/spf13/cobra"
)

func newStatsCmd(e *env) *cobra.Command {
	var daily bool
	cmd := &cobra.Command{
		Use:       "stats [today|week|month]",
		Short:     "Show worked time against target, by project and tag",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"today", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			period := stats.Today
			if len(args) == 1 {
				p, err := stats.ParsePeriod(args[0])
				if err != nil {
					return err
				}
				period = p
			}

			r := stats.PeriodRange(period, e.now(), e.loc, e.cfg.WeekStartDay())
			entries, err := e.store.ListEntriesInRange(r.StartUTC, r.EndUTC)
			if err != nil {
				return err
			}
			taskToProject, projectNames, err := e.store.ProjectIndex()
			if err != nil {
				return err
			}
			tagsByTask, err := e.store.TagsByTask()
			if err != nil {
				return err
			}
			hours, err := e.store.WorkingHours()
			if err != nil {
				return err
			}

			now := e.clock.Now()
			totals := stats.Aggregate(entries, r.StartUTC, r.EndUTC, now, taskToProject, projectNames, tagsByTask)
			target := stats.TargetSecondsForPeriod(r.StartLocal, r.EndLocal, hours)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s to %s\n", period,
				r.StartLocal.Format("2006-01-02"), r.EndLocal.AddDate(0, 0, -1).Format("2006-01-02"))
			fmt.Fprintf(out, "Worked: %s\n", formatHM(totals.WorkedSeconds))
			fmt.Fprintf(out, "Target: %s\n", formatHM(target))
			if target > 0 {
				fmt.Fprintf(out, "Delta:  %s\n", formatDelta(totals.WorkedSeconds-target))
			}

			writeTotals(out, "Projects", totals.ProjectTotals)
			writeTotals(out, "Tags", totals.TagTotals)

			if daily && period != stats.Today {
				fmt.Fprintln(out, "\nDaily:")
				for _, d := range stats.DailyWorked(entries, r, now) {
					fmt.Fprintf(out, "  %s  %s\n", d.Date.Format("Mon 01-02"), formatHM(d.Seconds))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", false, "Also list worked time per day")
	return cmd
}

func writeTotals(out io.Writer, title string, totals []stats.NamedSeconds) {
	if len(totals) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range totals {
		fmt.Fprintf(w, "  %s\t%s\n", t.Name, formatHM(t.Seconds))
	}
	w.Flush()
}
