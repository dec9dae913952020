// Package state provides a small observable value container shared by the
// CLI views and background monitors.
package state

import "sync"

// Store holds a value of type T and notifies subscribers after every change.
// It is safe for concurrent use. Subscribers run synchronously on the
// goroutine that made the change, in subscription order, after the store's
// lock has been released, so they may call Get.
type Store[T any] struct {
	mu    sync.Mutex
	value T
	subs  []subscriber[T]
	next  int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// New returns a Store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, v)
}

// Update applies fn to the current value atomically, stores the result and
// notifies subscribers. The new value is returned.
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	v := fn(s.value)
	s.value = v
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, v)
	return v
}

// Subscribe registers fn to be called after every change. The returned func
// removes the subscription and is safe to call more than once.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store[T]) snapshot() []func(T) {
	fns := make([]func(T), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return fns
}

func notify[T any](fns []func(T), v T) {
	for _, fn := range fns {
		fn(v)
	}
}
