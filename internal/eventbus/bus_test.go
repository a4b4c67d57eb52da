package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(4)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCreated, "task-1", "", map[string]string{"board_id": "board-1"})

	select {
	case ev := <-ch:
		assert.Equal(t, TypeTaskCreated, ev.Type)
		assert.Equal(t, "task-1", ev.ResourceID)
		assert.Equal(t, "board-1", ev.Metadata["board_id"])
		assert.NotEmpty(t, ev.ID)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBusFanOut(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(1)
	id2, ch2 := bus.Subscribe(1)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(TypeTaskUpdated, "task-1", "", nil)

	require.Len(t, ch1, 1)
	require.Len(t, ch2, 1)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskUpdated, "task-1", "", nil)
	bus.PublishNew(TypeTaskUpdated, "task-2", "", nil)

	// Second publish is dropped for this subscriber, never blocked on.
	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, "task-1", ev.ResourceID)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(TypeTaskUpdated, "task-1", "", nil)
}
