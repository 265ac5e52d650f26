// Package clock abstracts wall-clock access so pollers and limiters can be
// driven deterministically in tests.
package clock

import "time"

// Clock provides the two time primitives the core needs: the current time
// and a cancellable delay.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// System is the real wall clock.
type System struct{}

func (System) Now() time.Time                         { return time.Now() }
func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }
