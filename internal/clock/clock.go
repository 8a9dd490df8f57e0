// Package clock abstracts time so pollers and the registry can be driven by a
// fake clock in tests.
package clock

import "time"

// Ticker delivers ticks on C. Missed ticks are dropped, not queued.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is a source of time and tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
