package lock

import (
	"context"
	"sync"
	"time"
)

// KeyedMutex is an in-process Locker for single-instance deployments and tests.
// Each key maps to a one-slot channel; entries are dropped once unused.
type KeyedMutex struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a KeyedMutex. timeout bounds the wait per Acquire.
func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot), timeout: timeout}
}

func (k *KeyedMutex) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	s := k.ref(key)

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-timer.C:
		k.unref(key, s)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		k.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.unref(key, s)
		})
	}, nil
}
