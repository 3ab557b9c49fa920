// Package observable holds a value that is replaced wholesale and broadcast to
// subscribers. Readers always see a complete value.
package observable

import (
	"sync"
	"sync/atomic"
)

type Store[T any] struct {
	value atomic.Pointer[T]

	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func New[T any](initial T) *Store[T] {
	s := &Store[T]{subs: make(map[int]func(T))}
	s.value.Store(&initial)
	return s
}

func (s *Store[T]) Get() T {
	return *s.value.Load()
}

// Set swaps in v and notifies subscribers in registration order.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update applies fn to the current value under the store lock and publishes the result.
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	next := fn(*s.value.Load())
	s.value.Store(&next)
	subs := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
