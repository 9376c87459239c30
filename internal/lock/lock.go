// Package lock serializes operations on a single session across requests and
// server instances.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a lock could not be taken within the wait budget.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker takes exclusive, keyed locks.
type Locker interface {
	// Acquire blocks until key is held, ctx ends, or the wait budget runs out.
	// The returned func releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const retryInterval = 25 * time.Millisecond
