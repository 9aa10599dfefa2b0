//go:build !lockdebug

package lock

import "sync"

// rwMutex is the underlying shared/exclusive mutex of a Locker.
// Build with -tags lockdebug to replace it with a deadlock detecting mutex.
type rwMutex = sync.RWMutex

// DeadlockDetection is true if the Locker is built on top of go-deadlock.
const DeadlockDetection = false
