package midi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deviceLog struct {
	mu     sync.Mutex
	events []string
}

func (d *deviceLog) HandleConnect(dev model.DeviceInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, "connect "+dev.Name)
}

func (d *deviceLog) HandleDisconnect(dev model.DeviceInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, "disconnect "+dev.Name)
}

func (d *deviceLog) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.events...)
}

type fakePorts struct {
	mu      sync.Mutex
	devices []model.DeviceInfo
	stopped []string
	onErr   func(error)
	fail    bool
}

func (p *fakePorts) set(devices ...model.DeviceInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = devices
}

func (p *fakePorts) list() ([]model.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.DeviceInfo{}, p.devices...), nil
}

func (p *fakePorts) connect(dev model.DeviceInfo, onErr func(error)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("port busy")
	}
	p.onErr = onErr
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.stopped = append(p.stopped, dev.Name)
	}, nil
}

var (
	keystation = model.DeviceInfo{ID: "1", Name: "Keystation 49"}
	launchkey  = model.DeviceInfo{ID: "2", Name: "Launchkey Mini"}
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(2 * time.Second)
	return c.t
}

func newTestWatcher(ports *fakePorts, devices *deviceLog, opts ...WatcherOption) *Watcher {
	clock := &stepClock{t: time.Now()}
	return NewWatcher(&fakeSink{}, devices, append([]WatcherOption{
		WithLister(ports.list),
		WithConnector(ports.connect),
		WithWatcherClock(clock.now),
	}, opts...)...)
}

func noDriver() ([]model.DeviceInfo, error) {
	return nil, ErrUnsupportedPlatform
}

func TestWatcherConnectsToOnlyPort(t *testing.T) {
	ports := &fakePorts{}
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)

	w.Tick()
	_, ok := w.Connected()
	assert.False(t, ok)

	ports.set(keystation)
	w.Tick()
	dev, ok := w.Connected()
	require.True(t, ok)
	assert.Equal(t, keystation, dev)
	assert.Equal(t, []string{"connect Keystation 49"}, devices.snapshot())
}

func TestWatcherUsesConfiguredPort(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation, launchkey)
	w := newTestWatcher(ports, &deviceLog{}, WithPort("launchkey"))

	require.NoError(t, w.Start())
	dev, ok := w.Connected()
	require.True(t, ok)
	assert.Equal(t, launchkey, dev)
}

func TestWatcherStartFailsWhenConfiguredPortIsAbsent(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices, WithPort("Roland"))

	err := w.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	_, ok := w.Connected()
	assert.False(t, ok)
	assert.Empty(t, devices.snapshot())
}

func TestWatcherNeverFallsBackFromConfiguredPort(t *testing.T) {
	roland := model.DeviceInfo{ID: "3", Name: "Roland A-49"}
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices, WithPort("roland"))

	require.NoError(t, w.Tick())
	_, ok := w.Connected()
	assert.False(t, ok)

	ports.set(keystation, roland)
	require.NoError(t, w.Tick())
	dev, ok := w.Connected()
	require.True(t, ok)
	assert.Equal(t, roland, dev)
	assert.Equal(t, []string{"connect Roland A-49"}, devices.snapshot())
}

func TestWatcherStartWithoutPortWaitsForHotPlug(t *testing.T) {
	w := newTestWatcher(&fakePorts{}, &deviceLog{})

	assert.NoError(t, w.Start())
	_, ok := w.Connected()
	assert.False(t, ok)
}

func TestWatcherStartReportsConnectFailure(t *testing.T) {
	ports := &fakePorts{fail: true}
	ports.set(keystation)
	w := newTestWatcher(ports, &deviceLog{})

	err := w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port busy")
}

func TestWatcherWithoutDriver(t *testing.T) {
	clock := &stepClock{t: time.Now()}
	w := NewWatcher(&fakeSink{}, &deviceLog{}, WithLister(noDriver), WithWatcherClock(clock.now))

	assert.True(t, errors.Is(w.Start(), ErrUnsupportedPlatform))
	assert.True(t, errors.Is(w.Tick(), ErrUnsupportedPlatform))
}

func TestWatcherRunStopsWithoutDriver(t *testing.T) {
	w := NewWatcher(&fakeSink{}, &deviceLog{}, WithLister(noDriver))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := w.Run(ctx, 5*time.Millisecond)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.NoError(t, ctx.Err())
}

func TestWatcherRunEndsWithContext(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 5*time.Millisecond) }()
	assert.Eventually(t, func() bool {
		_, ok := w.Connected()
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher kept running after cancel")
	}
	assert.Equal(t, []string{"Keystation 49"}, ports.stopped)
}

func TestWatcherWaitsWhenAmbiguous(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation, launchkey)
	w := newTestWatcher(ports, &deviceLog{})

	w.Tick()
	_, ok := w.Connected()
	assert.False(t, ok)
}

func TestWatcherNoticesUnplug(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)
	w.Tick()

	ports.set()
	w.Tick()

	_, ok := w.Connected()
	assert.False(t, ok)
	assert.Equal(t, []string{"connect Keystation 49", "disconnect Keystation 49"}, devices.snapshot())
	assert.Equal(t, []string{"Keystation 49"}, ports.stopped)
}

func TestWatcherListenerErrorDisconnects(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)
	w.Tick()

	ports.onErr(errors.New("device gone"))

	assert.Eventually(t, func() bool {
		_, ok := w.Connected()
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return len(devices.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcherConnectFailure(t *testing.T) {
	ports := &fakePorts{fail: true}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)

	w.Tick()
	_, ok := w.Connected()
	assert.False(t, ok)
	assert.Empty(t, devices.snapshot())
}

func TestWatcherRateLimitsScans(t *testing.T) {
	ports := &fakePorts{}
	calls := 0
	list := func() ([]model.DeviceInfo, error) {
		calls++
		return ports.list()
	}
	fixed := time.Now()
	w := NewWatcher(&fakeSink{}, &deviceLog{},
		WithLister(list),
		WithConnector(ports.connect),
		WithWatcherClock(func() time.Time { return fixed }),
	)

	w.Tick()
	w.Tick()
	assert.Equal(t, 1, calls)
}

func TestWatcherClose(t *testing.T) {
	ports := &fakePorts{}
	ports.set(keystation)
	devices := &deviceLog{}
	w := newTestWatcher(ports, devices)
	w.Tick()

	w.Close()
	w.Tick()

	assert.Equal(t, []string{"connect Keystation 49"}, devices.snapshot())
	assert.Equal(t, []string{"Keystation 49"}, ports.stopped)
}

func TestFindInput(t *testing.T) {
	devices := []model.DeviceInfo{keystation, launchkey}

	dev, err := FindInput(devices, "2")
	require.NoError(t, err)
	assert.Equal(t, launchkey, dev)

	dev, err = FindInput(devices, "keystation")
	require.NoError(t, err)
	assert.Equal(t, keystation, dev)

	_, err = FindInput(devices, "Oxygen")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}
