package domain

import "github.com/jonboulle/clockwork"

// clock stamps assembled fit rows. Tests freeze it via SetClock so that
// output is reproducible.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by AssembleFitRows. Pass nil to reset
// to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
