package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// LocalBroker fans out within a single process. A subscriber whose buffer is
// full misses the event.
type LocalBroker struct {
	mutex       sync.Mutex
	nextID      int
	subscribers map[int]chan Event
	closed      bool
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subscribers: make(map[int]chan Event)}
}

func (b *LocalBroker) Publish(_ context.Context, event Event) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return nil, nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		b.remove(id)
	}()
	return ch, cancel, nil
}

func (b *LocalBroker) remove(id int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *LocalBroker) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	return nil
}
