package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerRunsOnlyLastTrigger(t *testing.T) {
	d := New(20 * time.Millisecond)

	var first, last int32
	d.Trigger(func() { atomic.AddInt32(&first, 1) })
	d.Trigger(func() { atomic.AddInt32(&last, 1) })

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&last) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&last))
}

func TestDebouncerCancel(t *testing.T) {
	d := New(10 * time.Millisecond)

	var ran int32
	d.Trigger(func() { atomic.AddInt32(&ran, 1) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestManual(t *testing.T) {
	assert := assert.New(t)
	m := NewManual(time.Second)

	assert.False(m.Fire())

	calls := 0
	m.Trigger(func() { calls = 1 })
	m.Trigger(func() { calls = 2 })
	assert.True(m.Pending())
	assert.Equal(2, m.Triggers())
	assert.True(m.Fire())
	assert.Equal(2, calls)
	assert.False(m.Pending())

	m.Trigger(func() { calls = 3 })
	m.Cancel()
	assert.False(m.Fire())
	assert.Equal(2, calls)
}

func TestManualSet(t *testing.T) {
	var s ManualSet
	s.New(time.Second)
	s.New(2 * time.Second)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, time.Second, s.Get(0).After)
	assert.Equal(t, 2*time.Second, s.Last().After)
}
