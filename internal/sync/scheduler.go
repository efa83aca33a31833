package sync

import "time"

// Scheduler defers the next batch invocation. The engine never sleeps
// between batches; it hands the continuation over and returns.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// TimerScheduler runs continuations on a timer.
type TimerScheduler struct{}

// Schedule invokes fn after delay on its own goroutine.
func (TimerScheduler) Schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}
