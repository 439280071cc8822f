// Package notify implements the Notification Core (C9): a background
// polling task that watches `latest_height`, the upstream mempool, and
// the upstream sync status, fanning events out to any number of
// subscribers (spec.md §4.9). Grounded on
// original_source/web3-service/src/notify/subscriber_notify.rs for the
// polling/diffing shape, generalized off its single-subscriber
// Notifications<T> type onto a proper multi-subscriber fan-out since this
// service's pub/sub layer serves many concurrent JSON-RPC clients.
package notify

import "sync"

// Broadcaster is a single-producer / many-consumer event bus: Publish
// never blocks, and a subscriber that falls behind loses events rather
// than slowing the producer down (spec.md §5's shared-resource note on
// the notification broadcast channels).
type Broadcaster[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new consumer with the given buffer depth and
// returns its receive-only channel plus an unsubscribe func. Callers
// must invoke unsubscribe when done to release the channel.
func (b *Broadcaster[T]) Subscribe(buffer int) (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, buffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish fans v out to every current subscriber without blocking: a
// subscriber whose buffer is full simply misses this event.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// SubscriberCount reports how many consumers are currently registered,
// mainly for tests and metrics.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
