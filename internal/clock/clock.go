// Package clock abstracts wall-clock time so deadline math can be tested
// against a controlled time source.
package clock

import "time"

// Clock supplies the current wall-clock time. All deadline arithmetic in
// the engine goes through a Clock; remaining time is always derived as
// deadline minus now, never decremented by a counter.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }
