// Package clock provides the time source and callback scheduling used by the
// recognizer. Recognizer state is only ever touched from the goroutine that
// runs a Loop (or from the test goroutine driving a Manual clock).
package clock

import "time"

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Clock supplies timestamps in milliseconds and schedules callbacks.
type Clock interface {
	Now() float64
	AfterFunc(d time.Duration, f func()) Timer
}

// Millis converts a millisecond count into a time.Duration.
func Millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// ToMillis converts a duration into fractional milliseconds.
func ToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
