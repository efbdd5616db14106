package aggregator

import (
	"sync"

	"github.com/jsphweid/chordcoach/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrListenerFailure marks a handler that returned an error or panicked.
var ErrListenerFailure = errors.New("listener failure")

type EventKind string

const (
	NoteChanged        EventKind = "note-changed"
	StableNotes        EventKind = "stable-notes"
	ChordDetected      EventKind = "chord-detected"
	NotesCleared       EventKind = "notes-cleared"
	DeviceConnected    EventKind = "device-connected"
	DeviceDisconnected EventKind = "device-disconnected"
)

// Event is the payload handed to handlers. Only the field matching Kind is
// set: Note for note-changed, Snapshot for stable-notes and chord-detected,
// Device for the device events. notes-cleared carries nothing.
type Event struct {
	Kind     EventKind
	Note     *model.NoteEvent
	Snapshot *model.StableChordSnapshot
	Device   *model.DeviceInfo
}

type Handler func(Event) error

type registration struct {
	id      uint64
	handler Handler
}

// Bus delivers events to handlers in registration order. A failing handler
// is logged and skipped; it never stops delivery to the others.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventKind][]registration
	log      *log.Entry
}

func NewBus(logger *log.Entry) *Bus {
	if logger == nil {
		logger = log.WithField("component", "bus")
	}
	return &Bus{
		handlers: make(map[EventKind][]registration),
		log:      logger,
	}
}

// Subscription identifies one registration. The zero value is inert.
type Subscription struct {
	bus  *Bus
	kind EventKind
	id   uint64
}

// Unsubscribe removes the registration. Calling it more than once is safe.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s.kind, s.id)
}

func (b *Bus) Subscribe(kind EventKind, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], registration{id: b.nextID, handler: h})
	return Subscription{bus: b, kind: kind, id: b.nextID}
}

func (b *Bus) remove(kind EventKind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[kind]
	for i, r := range regs {
		if r.id == id {
			b.handlers[kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Clear drops every registration.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventKind][]registration)
}

func (b *Bus) Len(kind EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Publish calls every handler registered for e.Kind and returns the
// failures, each wrapping ErrListenerFailure.
func (b *Bus) Publish(e Event) []error {
	b.mu.RLock()
	regs := append([]registration(nil), b.handlers[e.Kind]...)
	b.mu.RUnlock()

	var failures []error
	for _, r := range regs {
		if err := b.call(r.handler, e); err != nil {
			b.log.WithFields(log.Fields{
				"event": e.Kind,
				"error": err,
			}).Warn("listener failed")
			failures = append(failures, err)
		}
	}
	return failures
}

func (b *Bus) call(h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrListenerFailure, "panic: %v", r)
		}
	}()
	if herr := h(e); herr != nil {
		return errors.Wrapf(ErrListenerFailure, "%v", herr)
	}
	return nil
}
