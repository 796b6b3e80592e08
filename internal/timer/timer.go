// Package timer drives the single running time entry: start, stop, switch
// and crash recovery.
package timer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sadopc/timekeep/internal/clock"
	"github.com/sadopc/timekeep/internal/models"
)

// EntryStore is the part of the store the timer writes through. The store
// must reject a second open entry with models.ErrRunningTimerConflict.
type EntryStore interface {
	CreateTimerEntry(taskID, startAt int64) (*models.TimeEntry, error)
	StopRunningEntry(endAt int64) (*models.TimeEntry, error)
	RecoverRunningEntry(endAt int64) (*models.TimeEntry, error)
	GetRunningEntry() (*models.TimeEntry, error)
}

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type Service struct {
	mu      sync.Mutex
	entries EntryStore
	clock   clock.Clock
	running *models.TimeEntry
}

func New(entries EntryStore, c clock.Clock) *Service {
	if c == nil {
		c = clock.System{}
	}
	return &Service{entries: entries, clock: c}
}

// Start opens a new entry for taskID at now. Whatever entry is running,
// even one for the same task, is closed at that same instant first.
func (s *Service) Start(taskID int64) (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start(taskID, s.clock.Now())
}

// Switch is Stop followed by Start, both at one reading of the clock.
func (s *Service) Switch(taskID int64) (*models.TimeEntry, error) {
	return s.Start(taskID)
}

func (s *Service) start(taskID, now int64) (*models.TimeEntry, error) {
	if _, err := s.stop(now); err != nil {
		return nil, err
	}
	e, err := s.entries.CreateTimerEntry(taskID, now)
	if errors.Is(err, models.ErrRunningTimerConflict) {
		// Unreachable while all writers go through one Service.
		log.Printf("timer: invariant breach starting task %d: %v", taskID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("start task %d: %w", taskID, err)
	}
	s.running = e
	return e, nil
}

// Stop closes the running entry at now and returns it, or returns nil when
// the timer is idle.
func (s *Service) Stop() (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop(s.clock.Now())
}

func (s *Service) stop(now int64) (*models.TimeEntry, error) {
	e, err := s.entries.StopRunningEntry(now)
	if err != nil {
		return nil, fmt.Errorf("stop timer: %w", err)
	}
	s.running = nil
	return e, nil
}

// RecoverIfNeeded closes an entry left open by a previous run and marks it
// recovered. It returns the recovered entry, or nil if nothing was open.
func (s *Service) RecoverIfNeeded() (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entries.RecoverRunningEntry(s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("recover timer: %w", err)
	}
	s.running = nil
	if e != nil {
		log.Printf("timer: recovered entry %d for task %d (%ds)", e.ID, e.TaskID, e.EndOrNow(e.StartAt)-e.StartAt)
	}
	return e, nil
}

// Refresh reloads the running entry from the store.
func (s *Service) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entries.GetRunningEntry()
	if err != nil {
		return fmt.Errorf("refresh timer: %w", err)
	}
	s.running = e
	return nil
}

// Running returns a copy of the cached running entry, or nil when idle.
func (s *Service) Running() *models.TimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return nil
	}
	e := *s.running
	return &e
}

func (s *Service) State() State {
	if s.Running() == nil {
		return Idle
	}
	return Running
}

// Elapsed is how long the running entry has been open, 0 when idle.
func (s *Service) Elapsed() int64 {
	e := s.Running()
	if e == nil {
		return 0
	}
	return max(0, s.clock.Now()-e.StartAt)
}
