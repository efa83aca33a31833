package platform

import "errors"

// ErrAlreadyRunning is returned when a sync can't be started because a
// previous run still holds the run lease.
var ErrAlreadyRunning = errors.New("sync already running")
