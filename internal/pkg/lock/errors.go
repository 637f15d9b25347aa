package lock

import "errors"

// ErrLockTimeout is returned when a session lock is not acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")
