// Package aggregator turns a jittery stream of note-on/note-off events into
// settled chord snapshots. Every event restarts a single stability timer;
// only once the held notes stay unchanged for the stability window is a
// snapshot taken and published.
package aggregator

import (
	"sync"
	"time"

	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/constants"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/timer"
	"github.com/jsphweid/chordcoach/util"
	log "github.com/sirupsen/logrus"
)

type Option func(*Aggregator)

func WithLogger(l *log.Entry) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithTimers replaces the debouncer factory, letting tests fire the
// stability timer by hand.
func WithTimers(f timer.Factory) Option {
	return func(a *Aggregator) { a.newTimer = f }
}

func WithStabilityWindow(d time.Duration) Option {
	return func(a *Aggregator) { a.window = d }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator owns the held-note state. Handlers run synchronously on the
// goroutine that produced the event and must not call NoteOn, NoteOff,
// ConfigureStabilityWindow, HandleDisconnect or Dispose themselves.
type Aggregator struct {
	// emitMu serialises publishing so that a note-changed event is always
	// delivered before the stability events it leads to.
	emitMu sync.Mutex

	mu        sync.Mutex
	active    map[int]int
	stable    model.StableChordSnapshot
	window    time.Duration
	stability timer.Debouncer
	pending   bool
	disposed  bool

	newTimer timer.Factory
	now      func() time.Time
	bus      *Bus
	log      *log.Entry
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		active:   make(map[int]int),
		window:   constants.DefaultStabilityWindow,
		newTimer: timer.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = log.WithField("component", "aggregator")
	}
	a.bus = NewBus(a.log)
	a.adviseWindow(a.window)
	a.stability = a.newTimer(a.window)
	return a
}

// Subscribe registers h for events of the given kind.
func (a *Aggregator) Subscribe(kind EventKind, h Handler) Subscription {
	return a.bus.Subscribe(kind, h)
}

// NoteOn records a pressed key. A velocity of 0 is a release.
func (a *Aggregator) NoteOn(pitch, velocity int, ts time.Time) {
	if velocity == 0 {
		a.NoteOff(pitch, ts)
		return
	}
	a.apply(model.NoteEvent{Pitch: pitch, Velocity: velocity, Timestamp: ts, Kind: model.NoteOn})
}

func (a *Aggregator) NoteOff(pitch int, ts time.Time) {
	a.apply(model.NoteEvent{Pitch: pitch, Timestamp: ts, Kind: model.NoteOff})
}

func (a *Aggregator) apply(ev model.NoteEvent) {
	if ev.Pitch < 0 || ev.Pitch > 127 || ev.Velocity < 0 || ev.Velocity > 127 {
		a.log.WithFields(log.Fields{
			"pitch":    ev.Pitch,
			"velocity": ev.Velocity,
		}).Warn("ignoring note outside the 0-127 range")
		return
	}

	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	if ev.Kind == model.NoteOn {
		a.active[ev.Pitch] = ev.Velocity
	} else {
		delete(a.active, ev.Pitch)
	}
	a.pending = true
	a.stability.Trigger(a.settle)
	held := len(a.active)
	a.mu.Unlock()

	a.log.WithFields(log.Fields{
		"pitch": chord.NoteName(ev.Pitch),
		"kind":  ev.Kind,
		"held":  held,
	}).Debug("note changed")
	a.bus.Publish(Event{Kind: NoteChanged, Note: &ev})
}

// settle runs once the stability window passes without a new event.
func (a *Aggregator) settle() {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.pending = false
	notes := model.NoteSet(util.SortedKeys(a.active))
	if notes.Equal(a.stable.Notes) {
		a.mu.Unlock()
		return
	}
	velocities := make([]int, len(notes))
	for i, n := range notes {
		velocities[i] = a.active[n]
	}
	a.stable = model.StableChordSnapshot{
		Notes:      notes,
		Velocities: velocities,
		Timestamp:  a.now(),
	}
	snap := a.stable.Clone()
	a.mu.Unlock()

	a.publishSnapshot(snap)
}

func (a *Aggregator) publishSnapshot(snap model.StableChordSnapshot) {
	if len(snap.Notes) == 0 {
		a.log.Debug("notes cleared")
		a.bus.Publish(Event{Kind: NotesCleared})
		return
	}

	a.log.WithField("notes", chord.CreateChordKey(snap.Notes)).Debug("stable notes")
	stable := snap.Clone()
	a.bus.Publish(Event{Kind: StableNotes, Snapshot: &stable})
	if len(snap.Notes) >= 2 {
		detected := snap.Clone()
		a.bus.Publish(Event{Kind: ChordDetected, Snapshot: &detected})
	}
}

// GetActiveNotes returns a copy of the held notes, pitch -> velocity.
func (a *Aggregator) GetActiveNotes() map[int]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	res := make(map[int]int, len(a.active))
	for k, v := range a.active {
		res[k] = v
	}
	return res
}

// GetStableNotes returns a copy of the last published snapshot.
func (a *Aggregator) GetStableNotes() model.StableChordSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stable.Clone()
}

func (a *Aggregator) StabilityWindow() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}

// ConfigureStabilityWindow changes the quiet period. Values outside the
// recommended range are logged but still used. A pending evaluation is
// rescheduled with the new window.
func (a *Aggregator) ConfigureStabilityWindow(d time.Duration) {
	a.adviseWindow(d)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.stability.Cancel()
	a.window = d
	a.stability = a.newTimer(d)
	if a.pending {
		a.stability.Trigger(a.settle)
	}
}

func (a *Aggregator) adviseWindow(d time.Duration) {
	if d < constants.MinRecommendedStabilityWindow || d > constants.MaxRecommendedStabilityWindow {
		a.log.WithFields(log.Fields{
			"window_ms":          d.Milliseconds(),
			"recommended_min_ms": constants.MinRecommendedStabilityWindow.Milliseconds(),
			"recommended_max_ms": constants.MaxRecommendedStabilityWindow.Milliseconds(),
		}).Warn("stability window outside the recommended range")
	}
}

// HandleConnect passes a device-connected notification through.
func (a *Aggregator) HandleConnect(dev model.DeviceInfo) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	a.log.WithField("device", dev.Name).Info("device connected")
	a.bus.Publish(Event{Kind: DeviceConnected, Device: &dev})
}

// HandleDisconnect drops all held notes without waiting for the stability
// window, then passes the device-disconnected notification through.
func (a *Aggregator) HandleDisconnect(dev model.DeviceInfo) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.stability.Cancel()
	a.pending = false
	a.active = make(map[int]int)
	hadNotes := len(a.stable.Notes) > 0
	a.stable = model.StableChordSnapshot{Timestamp: a.now()}
	a.mu.Unlock()

	a.log.WithField("device", dev.Name).Info("device disconnected")
	if hadNotes {
		a.bus.Publish(Event{Kind: NotesCleared})
	}
	a.bus.Publish(Event{Kind: DeviceDisconnected, Device: &dev})
}

// Dispose clears all state, cancels the stability timer and drops every
// subscription. Later calls are no-ops and the accessors report no notes.
func (a *Aggregator) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.disposed = true
	a.stability.Cancel()
	a.pending = false
	a.active = make(map[int]int)
	a.stable = model.StableChordSnapshot{}
	a.bus.Clear()
}
