package fixgw

import (
	"sync"
	"sync/atomic"
)

// Stream is a multi-subscriber broadcast channel for decoded session events.
// Each subscriber gets its own buffered channel; publishing never blocks, so
// a slow subscriber cannot stall the session's decode path. Events arriving
// on one session are delivered to each subscriber in arrival order. When a
// subscriber's buffer is full the event is dropped for that subscriber and
// counted.
type Stream[T any] struct {
	mu      sync.Mutex
	subs    []chan T
	dropped atomic.Int64
}

// NewStream creates an empty stream
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Subscribe registers a new subscriber with the given channel buffer
func (s *Stream[T]) Subscribe(buffer int) <-chan T {
	ch := make(chan T, buffer)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Publish delivers v to every subscriber without blocking
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- v:
		default:
			s.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events discarded due to full subscriber
// buffers
func (s *Stream[T]) Dropped() int64 {
	return s.dropped.Load()
}
