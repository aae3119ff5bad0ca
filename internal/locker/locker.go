// Package locker provides in-process keyed locks used to serialize work per
// user.
package locker

import (
	"context"
	"sync"
)

// Locker holds one lock per key. The zero value is not usable; call New.
type Locker struct {
	mu           sync.Mutex
	inProcessMap map[string]chan struct{}
}

// New returns a Locker with no keys held.
func New() *Locker {
	return &Locker{
		inProcessMap: make(map[string]chan struct{}),
	}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		released, busy := l.inProcessMap[key]
		if !busy {
			l.inProcessMap[key] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryLock takes key without waiting. It reports false if key is held.
func (l *Locker) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inProcessMap[key]; busy {
		return false
	}
	l.inProcessMap[key] = make(chan struct{})
	return true
}

// IsProcessing checks if key is currently held.
func (l *Locker) IsProcessing(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.inProcessMap[key]
	return busy
}

// Unlock releases key and wakes any waiters. Unlocking a free key is a no-op.
func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if released, ok := l.inProcessMap[key]; ok {
		delete(l.inProcessMap, key)
		close(released)
	}
}
