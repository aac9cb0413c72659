// Controller event history for debugging dispatch and routing
package core

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind labels a recorded controller event.
type EventKind string

const (
	EventImage     EventKind = "image"
	EventThreshold EventKind = "threshold"
	EventDispatch  EventKind = "dispatch"
	EventRoute     EventKind = "route"
	EventDrop      EventKind = "drop"
)

// maxEvents bounds the history; older events are discarded first.
const maxEvents = 256

// Event is one entry in the controller history.
type Event struct {
	Timestamp time.Time
	Kind      EventKind
	Seq       uint64
	Detail    string
}

// Debugger keeps a bounded history of controller events and traces them
// when the logger runs at trace level.
type Debugger struct {
	logger logrus.FieldLogger

	mu     sync.Mutex
	events []Event
	counts map[EventKind]int
}

func NewDebugger(logger logrus.FieldLogger) *Debugger {
	return &Debugger{
		logger: logger,
		events: make([]Event, 0, maxEvents),
		counts: make(map[EventKind]int),
	}
}

// Record appends an event.
func (d *Debugger) Record(kind EventKind, seq uint64, detail string) {
	evt := Event{
		Timestamp: time.Now(),
		Kind:      kind,
		Seq:       seq,
		Detail:    detail,
	}

	d.mu.Lock()
	if len(d.events) == maxEvents {
		copy(d.events, d.events[1:])
		d.events = d.events[:maxEvents-1]
	}
	d.events = append(d.events, evt)
	d.counts[kind]++
	d.mu.Unlock()

	d.logger.WithFields(logrus.Fields{
		"event":  kind,
		"seq":    seq,
		"detail": detail,
	}).Trace("CONTROLLER Event")
}

// Events returns a copy of the history, oldest first.
func (d *Debugger) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Count returns how many events of kind were recorded, including discarded ones.
func (d *Debugger) Count(kind EventKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}
