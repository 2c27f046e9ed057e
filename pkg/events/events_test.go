package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(Event{Type: EventContainerDown, Container: "myapp_web_1"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventContainerDown, ev.Type)
		assert.Equal(t, "myapp_web_1", ev.Container)
		assert.False(t, ev.Timestamp.IsZero(), "publish stamps missing timestamps")
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)

	// A second unsubscribe is a no-op, not a double close.
	b.Unsubscribe(sub)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < cap(sub)+10; i++ {
		b.Publish(Event{Type: EventRestartFailed})
	}

	assert.Len(t, sub, cap(sub), "overflow events are dropped, not blocked on")
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	b.Publish(Event{Type: EventDiscoveryCompleted})
}
