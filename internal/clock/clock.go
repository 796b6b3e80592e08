// Package clock supplies the current time in epoch seconds so callers can
// substitute a deterministic source in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() int64
}

// System reads the wall clock.
type System struct{}

func (System) Now() int64 { return time.Now().Unix() }

// Func adapts a plain function to Clock.
type Func func() int64

func (f Func) Now() int64 { return f() }

// Fixed always returns the same instant.
type Fixed int64

func (f Fixed) Now() int64 { return int64(f) }

// Sequence returns each instant in turn on successive calls and keeps
// returning the last one once exhausted.
type Sequence struct {
	mu    sync.Mutex
	times []int64
	next  int
}

func NewSequence(times ...int64) *Sequence {
	return &Sequence{times: times}
}

func (s *Sequence) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.times) == 0 {
		return 0
	}
	i := s.next
	if i >= len(s.times) {
		i = len(s.times) - 1
	} else {
		s.next++
	}
	return s.times[i]
}
