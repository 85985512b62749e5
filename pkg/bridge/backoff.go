// Package bridge pkg/bridge/backoff.go
package bridge

import (
	"math/rand"
	"time"
)

// Backoff produces the wait interval between reconnection attempts: the base
// delay doubles per consecutive failure, capped at a maximum, with random
// jitter added so a restarting local service is not hammered by every
// configured device at once.
//
// Delays are non-decreasing until the cap: jitter only lengthens a delay,
// and a delay plus full jitter never exceeds the next doubling.
type Backoff struct {
	base     time.Duration
	max      time.Duration
	jitter   float64
	attempts int
	rnd      func() float64
}

func NewBackoff(base, max time.Duration, jitter float64) *Backoff {
	if base <= 0 {
		base = time.Second
	}

	if max < base {
		max = base
	}

	if jitter < 0 || jitter > 1 {
		jitter = 0
	}

	return &Backoff{
		base:   base,
		max:    max,
		jitter: jitter,
		rnd:    rand.Float64,
	}
}

// Next returns the delay for the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := b.base
	for i := 0; i < b.attempts; i++ {
		d *= 2
		if d >= b.max {
			d = b.max
			break
		}
	}

	b.attempts++

	if b.jitter > 0 && d < b.max {
		d += time.Duration(float64(d) * b.jitter * b.rnd())
	}

	if d > b.max {
		d = b.max
	}

	return d
}

// Reset clears the consecutive-failure streak after a successful connection.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts reports the current consecutive-failure count.
func (b *Backoff) Attempts() int {
	return b.attempts
}
