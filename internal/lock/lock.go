// Package lock serialises mutations per plan. Different keys never block
// each other.
package lock

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when the lock could not be acquired before the
// context was done.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker hands out exclusive access to a key. The returned release function
// must be called exactly once; calling it again is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
