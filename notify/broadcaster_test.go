package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster[uint32]()
	ch1, unsub1 := b.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(4)
	defer unsub2()

	b.Publish(7)

	require.Equal(t, uint32(7), <-ch1)
	require.Equal(t, uint32(7), <-ch2)
}

func TestBroadcasterDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroadcaster[uint32]()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(1)
	b.Publish(2) // dropped: buffer already holds one unread value

	require.Equal(t, uint32(1), <-ch)
	select {
	case v := <-ch:
		t.Fatalf("expected no further value, got %d", v)
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[uint32]()
	ch, unsub := b.Subscribe(1)
	require.Equal(t, 1, b.SubscriberCount())

	unsub()
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}
