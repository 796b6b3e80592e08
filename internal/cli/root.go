// Package cli wires the timekeep command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/timekeep/internal/clock"
	"github.com/sadopc/timekeep/internal/config"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/store"
	"github.com/sadopc/timekeep/internal/timer"
	"github.com/sadopc/timekeep/internal/tui"
	"github.com/spf13/cobra"
)

// skipStore marks commands that run without opening the database.
const skipStore = "skip-store"

// env is shared by every command of one invocation.
type env struct {
	cfgPath string
	dbPath  string
	verbose bool

	clock clock.Clock
	cfg   *config.Config
	loc   *time.Location
	store *store.Store
	timer *timer.Service
	bus   *events.Bus
}

func (e *env) vlogf(format string, args ...any) {
	if e.verbose {
		log.Printf(format, args...)
	}
}

func (e *env) now() time.Time {
	return time.Unix(e.clock.Now(), 0).In(e.loc)
}

func (e *env) loadConfig() error {
	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	e.cfg, e.loc = cfg, loc
	return nil
}

func (e *env) open() error {
	e.close()
	if err := e.loadConfig(); err != nil {
		return err
	}

	path := e.dbPath
	if path == "" {
		path = e.cfg.DBPath
	}
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return err
		}
		path = p
	}

	e.bus = events.NewBus()
	s, err := store.New(path, store.WithClock(e.clock), store.WithNotifier(e.bus))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e.store = s
	e.timer = timer.New(s, e.clock)
	e.vlogf("using database %s", path)
	return e.timer.Refresh()
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
		e.store = nil
	}
}

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipStore] == "true" {
			return false
		}
	}
	return true
}

// NewRootCmd builds the command tree using the wall clock.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{clock: clock.System{}})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "timekeep",
		Short: "timekeep - track time against daily targets",
		Long: `timekeep tracks time on category > project > task hierarchies and compares
worked time with per-weekday targets.

Run without a subcommand to open the interactive dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsStore(cmd) {
				return e.loadConfig()
			}
			return e.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(e)
		},
	}

	root.PersistentFlags().StringVar(&e.cfgPath, "config", "", "Config file (default ~/.config/timekeep/config.yaml)")
	root.PersistentFlags().StringVar(&e.dbPath, "db", "", "Database file (overrides db_path)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newStartCmd(e),
		newStopCmd(e),
		newSwitchCmd(e),
		newStatusCmd(e),
		newRecoverCmd(e),
		newAddCmd(e),
		newEditCmd(e),
		newRmCmd(e),
		newLogCmd(e),
		newDayCmd(e),
		newStatsCmd(e),
		newCategoryCmd(e),
		newProjectCmd(e),
		newTaskCmd(e),
		newTagCmd(e),
		newHoursCmd(e),
		newBreaksCmd(e),
		newExportCmd(e),
		newConfigCmd(e),
		newResetCmd(e),
		newSeedCmd(e),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	log.SetFlags(0)
	log.SetPrefix("timekeep: ")

	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		if errors.Is(err, models.ErrRunningTimerConflict) {
			log.Printf("store invariant violated: %v", err)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runTUI(e *env) error {
	if e.cfg.LogFile != "" {
		f, err := tea.LogToFile(e.cfg.LogFile, "timekeep")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	if e.cfg.RecoverOnStart {
		rec, err := e.timer.RecoverIfNeeded()
		if err != nil {
			return err
		}
		if rec != nil {
			log.Printf("closed entry %d left running by a previous session", rec.ID)
		}
	}

	app := tui.NewApp(tui.Options{
		Store:     e.store,
		Timer:     e.timer,
		Bus:       e.bus,
		Clock:     e.clock,
		Location:  e.loc,
		WeekStart: e.cfg.WeekStartDay(),
		ExportDir: e.cfg.ExportDir,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
