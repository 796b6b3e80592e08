package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/store"
	"github.com/spf13/cobra"
)

func newAddCmd(e *env) *cobra.Command {
	var from, to, note string
	cmd := &cobra.Command{
		Use:   "add <task-id> --from <time> --to <time>",
		Short: "Add a finished entry",
		Example: `  timekeep add 3 --from 09:00 --to 10:30
  timekeep add 3 --from "2026-03-09 13:00" --to "2026-03-09 14:15" --note review`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			now := e.now()
			start, err := parseTime(from, now)
			if err != nil {
				return err
			}
			end, err := parseTime(to, now)
			if err != nil {
				return err
			}

			entry, err := e.store.CreateManualEntry(taskID, start.Unix(), end.Unix(), note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry #%d: %s %s-%s (%s)\n",
				entry.ID, e.taskPath(taskID), start.Format("2006-01-02 15:04"), end.Format("15:04"),
				formatHM(end.Unix()-start.Unix()))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start time (YYYY-MM-DD HH:MM or HH:MM today)")
	cmd.Flags().StringVar(&to, "to", "", "End time")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var (
		taskID   int64
		from, to string
		note     string
		open     bool
	)
	cmd := &cobra.Command{
		Use:   "edit <entry-id>",
		Short: "Change an entry's task, times or note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "entry")
			if err != nil {
				return err
			}
			entry, err := e.store.GetEntry(id)
			if err != nil {
				return err
			}

			now := e.now()
			flags := cmd.Flags()
			if flags.Changed("task") {
				entry.TaskID = taskID
			}
			if flags.Changed("from") {
				t, err := parseTime(from, now)
				if err != nil {
					return err
				}
				entry.StartAt = t.Unix()
			}
			if flags.Changed("to") {
				t, err := parseTime(to, now)
				if err != nil {
					return err
				}
				end := t.Unix()
				entry.EndAt = &end
			}
			if open {
				entry.EndAt = nil
			}
			if flags.Changed("note") {
				entry.Note = note
			}

			updated, err := e.store.UpdateEntry(*entry)
			if err != nil {
				return err
			}
			if updated.Running() {
				if err := e.timer.Refresh(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated entry #%d\n", updated.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Move the entry to another task")
	cmd.Flags().StringVar(&from, "from", "", "New start time")
	cmd.Flags().StringVar(&to, "to", "", "New end time")
	cmd.Flags().StringVarP(&note, "note", "n", "", "New note")
	cmd.Flags().BoolVar(&open, "open", false, "Reopen the entry as running")
	cmd.MarkFlagsMutuallyExclusive("to", "open")
	return cmd
}

func newRmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <entry-id>",
		Aliases: []string{"delete"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "entry")
			if err != nil {
				return err
			}
			if err := e.store.DeleteEntry(id); err != nil {
				return err
			}
			if err := e.timer.Refresh(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry #%d\n", id)
			return nil
		},
	}
}

func newLogCmd(e *env) *cobra.Command {
	var (
		limit  int
		taskID int64
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := store.EntryFilter{Limit: limit}
			if taskID > 0 {
				f.TaskID = &taskID
			}
			entries, err := e.store.ListEntries(f)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries")
				return nil
			}
			e.writeEntries(cmd.OutOrStdout(), entries, "2006-01-02 15:04")
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of entries")
	cmd.Flags().Int64Var(&taskID, "task", 0, "Only entries of this task")
	return cmd
}

func newDayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Show one day's entries, breaks and target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := e.now()
			date := now
			if len(args) == 1 {
				d, err := parseDate(args[0], now)
				if err != nil {
					return err
				}
				date = d
			}

			entries, err := e.store.ListDayEntries(date, e.loc)
			if err != nil {
				return err
			}
			summary, err := e.summarizeDay(date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", date.Format("2006-01-02"), weekdayLabel(summary.Weekday))
			fmt.Fprintf(out, "Worked:  %s\n", formatHM(summary.Worked))
			fmt.Fprintf(out, "Target:  %s\n", formatHM(summary.Target))
			if summary.Target > 0 {
				fmt.Fprintf(out, "Delta:   %s\n", formatDelta(summary.Delta))
				fmt.Fprintf(out, "Missing: %s\n", formatHM(summary.Missing))
			}

			if len(summary.Breaks) > 0 {
				fmt.Fprintf(out, "\nBreaks (%s):\n", formatHM(summary.BreakSeconds()))
				for _, b := range summary.Breaks {
					fmt.Fprintf(out, "  %s-%s  %s\n",
						time.Unix(b.StartAt, 0).In(e.loc).Format("15:04"),
						time.Unix(b.EndAt, 0).In(e.loc).Format("15:04"),
						formatHM(b.Duration()))
				}
			}

			fmt.Fprintln(out)
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries")
				return nil
			}
			e.writeEntries(out, entries, "15:04")
			return nil
		},
	}
}

func (e *env) writeEntries(out io.Writer, entries []models.TimeEntry, layout string) {
	now := e.clock.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tEND\tDURATION\tTASK\tNOTE")
	for _, en := range entries {
		end := "running"
		if en.EndAt != nil {
			end = time.Unix(*en.EndAt, 0).In(e.loc).Format(layout)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			en.ID,
			time.Unix(en.StartAt, 0).In(e.loc).Format(layout),
			end,
			formatHM(en.EndOrNow(now)-en.StartAt),
			e.taskPath(en.TaskID),
			en.Note)
	}
	w.Flush()
}
