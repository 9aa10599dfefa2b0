//go:build lockdebug

package lock

import "github.com/sasha-s/go-deadlock"

// rwMutex is the underlying shared/exclusive mutex of a Locker.
// With the lockdebug build tag every Locker reports potential deadlocks
// and long waits through go-deadlock.
type rwMutex = deadlock.RWMutex

// DeadlockDetection is true if the Locker is built on top of go-deadlock.
const DeadlockDetection = true
