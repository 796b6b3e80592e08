package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/sadopc/timekeep/internal/models"
	"github.com/spf13/cobra"
)

func newHoursCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Show the daily working-hour targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := e.store.WorkingHours()
			if err != nil {
				return err
			}
			var week int64
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, h := range hours {
				secs := int64(h.MinutesTarget) * 60
				week += secs
				fmt.Fprintf(w, "%s\t%s\n", weekdayLabel(h.Weekday), formatHM(secs))
			}
			fmt.Fprintf(w, "Week\t%s\n", formatHM(week))
			return w.Flush()
		},
	}

	set := &cobra.Command{
		Use:   "set <weekday> <target>",
		Short: "Set one weekday's target (minutes or e.g. 7h30m)",
		Example: `  timekeep hours set mon 8h
  timekeep hours set 7 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseWeekday(args[0])
			if err != nil {
				return err
			}
			minutes, err := parseMinutes(args[1])
			if err != nil {
				return err
			}
			if err := e.store.SetWorkingHours([]models.WorkingHour{{Weekday: day, MinutesTarget: minutes}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s target set to %s\n", weekdayLabel(day), formatHM(int64(minutes)*60))
			return nil
		},
	}

	cmd.AddCommand(set)
	return cmd
}

func newBreaksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaks",
		Short: "Show the break detection rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := e.store.BreakRules()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Gaps between %d and %d minutes count as breaks\n",
				r.MinGapMinutes, r.MaxGapMinutes)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <min-minutes> <max-minutes>",
		Short: "Set the shortest and longest gap counted as a break",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := strconv.Atoi(args[0])
			if err != nil || lo < 0 {
				return fmt.Errorf("invalid minimum %q", args[0])
			}
			hi, err := strconv.Atoi(args[1])
			if err != nil || hi < 0 {
				return fmt.Errorf("invalid maximum %q", args[1])
			}
			if lo > hi {
				return fmt.Errorf("minimum gap (%d) must not exceed maximum (%d)", lo, hi)
			}
			if err := e.store.SetBreakRules(models.BreakRules{MinGapMinutes: lo, MaxGapMinutes: hi}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Break rules set to %d-%d minutes\n", lo, hi)
			return nil
		},
	}

	cmd.AddCommand(set)
	return cmd
}
