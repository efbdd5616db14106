package aggregator

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	b := NewBus(nil)
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe(StableNotes, func(Event) error {
			order = append(order, i)
			return nil
		})
	}

	failures := b.Publish(Event{Kind: StableNotes})
	assert.Empty(t, failures)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBusIsolatesFailures(t *testing.T) {
	b := NewBus(nil)
	called := 0
	b.Subscribe(NotesCleared, func(Event) error { return errors.New("bad handler") })
	b.Subscribe(NotesCleared, func(Event) error { panic("worse handler") })
	b.Subscribe(NotesCleared, func(Event) error {
		called++
		return nil
	})

	failures := b.Publish(Event{Kind: NotesCleared})
	require.Len(t, failures, 2)
	for _, err := range failures {
		assert.True(t, errors.Is(err, ErrListenerFailure))
	}
	assert.Equal(t, 1, called)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(nil)
	called := 0
	sub := b.Subscribe(NoteChanged, func(Event) error {
		called++
		return nil
	})
	b.Subscribe(NoteChanged, func(Event) error { return nil })

	sub.Unsubscribe()
	sub.Unsubscribe()
	Subscription{}.Unsubscribe()

	b.Publish(Event{Kind: NoteChanged})
	assert.Equal(t, 0, called)
	assert.Equal(t, 1, b.Len(NoteChanged))
}
