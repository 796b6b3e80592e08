package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/stats"
	"github.com/sadopc/timekeep/internal/store"
	"github.com/spf13/cobra"
)

func newStartCmd(e *env) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "start [task-id]",
		Short: "Start the timer (defaults to the last started task)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := e.resolveTask(args)
			if err != nil {
				return err
			}
			return e.startTask(cmd, taskID, note)
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note for the new entry")
	return cmd
}

func newSwitchCmd(e *env) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "switch <task-id>",
		Short: "Stop the running entry and start another task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return e.startTask(cmd, taskID, note)
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note for the new entry")
	return cmd
}

// resolveTask returns the task from args, or the last started task.
func (e *env) resolveTask(args []string) (int64, error) {
	if len(args) == 1 {
		return parseID(args[0], "task")
	}
	v, err := e.store.GetSetting(store.SettingLastTaskID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, fmt.Errorf("no task given and no previous task to resume")
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (e *env) startTask(cmd *cobra.Command, taskID int64, note string) error {
	if _, err := e.store.GetTask(taskID); err != nil {
		return err
	}
	prev, err := e.store.GetRunningEntry()
	if err != nil {
		return err
	}

	entry, err := e.timer.Switch(taskID)
	if err != nil {
		return err
	}
	if note != "" {
		if err := e.store.UpdateEntryNote(entry.ID, note); err != nil {
			return err
		}
	}
	if err := e.store.SetSetting(store.SettingLastTaskID, strconv.FormatInt(taskID, 10)); err != nil {
		e.vlogf("remember last task: %v", err)
	}

	out := cmd.OutOrStdout()
	if prev != nil {
		fmt.Fprintf(out, "Stopped %s after %s\n", e.taskPath(prev.TaskID), formatClock(entry.StartAt-prev.StartAt))
	}
	fmt.Fprintf(out, "Started %s at %s\n", e.taskPath(taskID), time.Unix(entry.StartAt, 0).In(e.loc).Format("15:04"))
	return nil
}

func newStopCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := e.timer.Stop()
			if err != nil {
				return err
			}
			if entry == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No timer running")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s after %s\n",
				e.taskPath(entry.TaskID), formatClock(*entry.EndAt-entry.StartAt))
			return nil
		},
	}
}

func newRecoverCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Close an entry left running by a crashed session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := e.timer.RecoverIfNeeded()
			if err != nil {
				return err
			}
			if entry == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to recover")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered entry #%d (%s, %s)\n",
				entry.ID, e.taskPath(entry.TaskID), formatClock(*entry.EndAt-entry.StartAt))
			return nil
		},
	}
}

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running timer and today's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			now := e.now()

			if r := e.timer.Running(); r != nil {
				started := time.Unix(r.StartAt, 0)
				fmt.Fprintf(out, "Running: %s\n", e.taskPath(r.TaskID))
				fmt.Fprintf(out, "  started %s (%s), elapsed %s\n",
					humanize.RelTime(started, now, "ago", "from now"),
					started.In(e.loc).Format("15:04"),
					formatClock(e.timer.Elapsed()))
			} else {
				fmt.Fprintln(out, "Idle")
			}

			summary, err := e.summarizeDay(now)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Today: %s worked", formatHM(summary.Worked))
			if summary.Target > 0 {
				fmt.Fprintf(out, " of %s (%s)", formatHM(summary.Target), formatDelta(summary.Delta))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func (e *env) summarizeDay(date time.Time) (stats.DaySummary, error) {
	entries, err := e.store.ListDayEntries(date, e.loc)
	if err != nil {
		return stats.DaySummary{}, err
	}
	hours, err := e.store.WorkingHours()
	if err != nil {
		return stats.DaySummary{}, err
	}
	rules, err := e.store.BreakRules()
	if err != nil {
		return stats.DaySummary{}, err
	}
	return stats.SummarizeDay(entries, date, e.loc, hours, rules, e.clock.Now()), nil
}

// taskPath falls back to "#id" when the task cannot be read.
func (e *env) taskPath(taskID int64) string {
	p, err := e.store.TaskPath(taskID)
	if err != nil {
		return fmt.Sprintf("task #%d", taskID)
	}
	return p
}
