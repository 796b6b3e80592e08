package tui

import (
	"time"

	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/store"
	"github.com/sadopc/timekeep/internal/timer"
)

// timerModel is the display side of the timer. The running entry itself
// lives in the store; the model keeps a label for it and re-reads the
// service after every write.
type timerModel struct {
	svc   *timer.Service
	store *store.Store

	entry *models.TimeEntry
	label string
}

func newTimerModel(svc *timer.Service, s *store.Store) timerModel {
	t := timerModel{svc: svc, store: s}
	t.sync()
	return t
}

// sync reloads the cached running entry and its task path.
func (t *timerModel) sync() {
	t.entry = t.svc.Running()
	t.label = ""
	if t.entry != nil {
		if path, err := t.store.TaskPath(t.entry.TaskID); err == nil {
			t.label = path
		}
	}
}

// start begins tracking taskID, closing whatever was running at the same
// instant.
func (t *timerModel) start(taskID int64) (*models.TimeEntry, error) {
	e, err := t.svc.Switch(taskID)
	if err != nil {
		return nil, err
	}
	t.sync()
	return e, nil
}

func (t *timerModel) stop() (*models.TimeEntry, error) {
	e, err := t.svc.Stop()
	if err != nil {
		return nil, err
	}
	t.sync()
	return e, nil
}

// refresh picks up changes made outside the model, such as an entry
// deleted from the Entries view or by another process.
func (t *timerModel) refresh() error {
	if err := t.svc.Refresh(); err != nil {
		return err
	}
	t.sync()
	return nil
}

func (t timerModel) running() bool {
	return t.entry != nil
}

func (t timerModel) taskID() int64 {
	if t.entry == nil {
		return 0
	}
	return t.entry.TaskID
}

func (t timerModel) currentElapsed() time.Duration {
	return time.Duration(t.svc.Elapsed()) * time.Second
}
