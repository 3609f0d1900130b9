package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies "now" for freshness classification. Tests and the snapshot
// command freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by Now. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the package time source.
func Clock() clockwork.Clock {
	return clock
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}
