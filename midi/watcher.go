package midi

import (
	"context"
	"sync"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const rescanInterval = time.Second

// DeviceSink is told when the watched input comes and goes.
type DeviceSink interface {
	HandleConnect(dev model.DeviceInfo)
	HandleDisconnect(dev model.DeviceInfo)
}

// Connector starts delivering notes from dev. onErr is called from the
// listener goroutine when the port fails; stop must release the port.
type Connector func(dev model.DeviceInfo, onErr func(error)) (stop func(), err error)

// Watcher keeps one input connected and reports hot-plug and unplug to its
// DeviceSink. Without a fixed port it takes the only port present.
type Watcher struct {
	mu      sync.Mutex
	list    func() ([]model.DeviceInfo, error)
	connect Connector
	port    string
	sink    DeviceSink
	now     func() time.Time
	log     *log.Entry

	connected *model.DeviceInfo
	stop      func()
	lastScan  time.Time
	closed    bool
}

type WatcherOption func(*Watcher)

// WithPort pins the watcher to the input matching query, a port number or
// part of its name. Other ports are never picked.
func WithPort(query string) WatcherOption {
	return func(w *Watcher) { w.port = query }
}

func WithLister(list func() ([]model.DeviceInfo, error)) WatcherOption {
	return func(w *Watcher) { w.list = list }
}

func WithConnector(c Connector) WatcherOption {
	return func(w *Watcher) { w.connect = c }
}

func WithWatcherClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) { w.now = now }
}

// NewWatcher connects notes from hardware ports to notes and device
// changes to devices.
func NewWatcher(notes NoteSink, devices DeviceSink, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		list: ListInputs,
		sink: devices,
		now:  time.Now,
		log:  log.WithField("component", "midi-watcher"),
	}
	w.connect = func(dev model.DeviceInfo, onErr func(error)) (func(), error) {
		in, _, err := OpenInput(dev.ID)
		if err != nil {
			return nil, err
		}
		return listen(in, notes, onErr)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connected reports the current device, if any.
func (w *Watcher) Connected() (model.DeviceInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connected == nil {
		return model.DeviceInfo{}, false
	}
	return *w.connected, true
}

// Start runs the first scan and returns what keeps the watcher from
// working: no midi driver, a fixed port that is absent, or a port that
// fails to open. Without a fixed port an empty scan is not an error.
func (w *Watcher) Start() error {
	return w.scan(true)
}

// Tick rescans the ports at most once per second. It connects when idle and
// notices when the connected port disappears. Only ErrUnsupportedPlatform
// is returned; other failures are logged and retried on the next tick.
func (w *Watcher) Tick() error {
	return w.scan(false)
}

func (w *Watcher) scan(strict bool) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	now := w.now()
	if !strict && !w.lastScan.IsZero() && now.Sub(w.lastScan) < rescanInterval {
		w.mu.Unlock()
		return nil
	}
	w.lastScan = now

	devices, err := w.list()
	if err != nil {
		w.mu.Unlock()
		if strict || errors.Is(err, ErrUnsupportedPlatform) {
			return err
		}
		w.log.WithError(err).Error("listing midi inputs failed")
		return nil
	}

	if w.connected != nil {
		for _, d := range devices {
			if d.Name == w.connected.Name {
				w.mu.Unlock()
				return nil
			}
		}
		lost := w.drop()
		w.lastScan = time.Time{}
		w.mu.Unlock()
		w.log.WithField("device", lost.Name).Warn("midi device disappeared")
		w.sink.HandleDisconnect(lost)
		return nil
	}

	dev, err := w.pick(devices)
	if err != nil {
		w.mu.Unlock()
		if strict && w.port != "" {
			return err
		}
		return nil
	}
	stop, err := w.connect(dev, func(err error) { go w.lost(dev) })
	if err != nil {
		w.mu.Unlock()
		if strict {
			return errors.Wrapf(err, "connecting to %q", dev.Name)
		}
		w.log.WithFields(log.Fields{
			"device": dev.Name,
			"error":  err,
		}).Error("midi connect failed")
		return nil
	}
	w.connected = &dev
	w.stop = stop
	w.mu.Unlock()

	w.log.WithField("device", dev.Name).Info("midi device connected")
	w.sink.HandleConnect(dev)
	return nil
}

// Run ticks until ctx is done or the midi driver goes away, and then closes
// the watcher.
func (w *Watcher) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer w.Close()
	if err := w.Tick(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Tick(); err != nil {
				return err
			}
		}
	}
}

// Close releases the connected port without reporting a disconnect.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drop()
	w.closed = true
}

func (w *Watcher) lost(dev model.DeviceInfo) {
	w.mu.Lock()
	if w.connected == nil || w.connected.Name != dev.Name {
		w.mu.Unlock()
		return
	}
	w.drop()
	w.lastScan = time.Time{}
	w.mu.Unlock()
	w.sink.HandleDisconnect(dev)
}

// drop must be called with w.mu held.
func (w *Watcher) drop() model.DeviceInfo {
	var dev model.DeviceInfo
	if w.connected != nil {
		dev = *w.connected
	}
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	w.connected = nil
	return dev
}

func (w *Watcher) pick(devices []model.DeviceInfo) (model.DeviceInfo, error) {
	if w.port != "" {
		return FindInput(devices, w.port)
	}
	if len(devices) == 1 {
		return devices[0], nil
	}
	return model.DeviceInfo{}, errors.Wrapf(ErrDeviceNotFound, "%d inputs and no port configured", len(devices))
}
