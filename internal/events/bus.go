// Package events fans out time-entry changes to in-process subscribers such
// as the TUI, replacing polling for "entry changed" notifications.
package events

import (
	"sync"

	"github.com/sadopc/timekeep/internal/models"
)

type Op string

const (
	EntryCreated   Op = "created"
	EntryStarted   Op = "started"
	EntryStopped   Op = "stopped"
	EntryRecovered Op = "recovered"
	EntryUpdated   Op = "updated"
	EntryDeleted   Op = "deleted"
)

// Event describes one committed change to a time entry.
type Event struct {
	Op    Op
	Entry models.TimeEntry
}

// Notifier receives events after the change is durable.
type Notifier interface {
	Publish(Event)
}

// Bus is a Notifier with fan-out to subscriber channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber is behind; drop rather than stall the writer
		}
	}
}

// Subscribe returns a buffered channel that receives all new events.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
