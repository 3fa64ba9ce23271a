package event

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel buffer when none is
// requested.
const DefaultBuffer = 256

// Bus is an in-memory pub/sub fan-out for lifecycle events. Publish
// never blocks: when a subscriber's buffer is full the event is dropped
// for that subscriber and counted.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int64]*subscriber
	nextID atomic.Int64
	closed bool

	dropped atomic.Int64
}

type subscriber struct {
	ch    chan Event
	types map[Type]bool // nil = all types
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]*subscriber)}
}

// Subscribe registers interest in the given event types (none = all).
// It returns the delivery channel and a cancel function that closes it.
func (b *Bus) Subscribe(buffer int, types ...Type) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	sub := &subscriber{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID.Add(1)
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish fans the event out to matching subscribers without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if sub.types != nil && !sub.types[evt.Type] {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many events were discarded due to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
