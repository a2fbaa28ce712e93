// Package clock abstracts time for the poll loops that drive waiting:
// prompt detection, idle detection, pattern waits, request waits, and
// transfer marker polling. Production code injects Real(); tests inject
// Fake() and step time deterministically.
package clock

import "time"

// Clock is the time surface used by poll loops. Code that needs the
// current time, a delay, or a periodic tick should take a Clock instead
// of calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has
	// elapsed. Receives immediately when d <= 0.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
