package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second, 0)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}

	for i, w := range want {
		assert.Equal(t, w, b.Next(), "attempt %d", i)
	}
}

func TestBackoffNeverExceedsCap(t *testing.T) {
	b := NewBackoff(500*time.Millisecond, 5*time.Second, 0.5)
	b.rnd = func() float64 { return 1 } // worst-case jitter

	for i := 0; i < 20; i++ {
		d := b.Next()
		assert.LessOrEqual(t, d, 5*time.Second, "attempt %d", i)
	}
}

func TestBackoffNonDecreasingWithJitter(t *testing.T) {
	// Deterministic but varied jitter draws.
	draws := []float64{0.9, 0.1, 0.7, 0.3, 0.5, 0.0, 1.0, 0.2}
	i := 0

	b := NewBackoff(time.Second, time.Minute, 0.2)
	b.rnd = func() float64 {
		v := draws[i%len(draws)]
		i++

		return v
	}

	prev := time.Duration(0)

	for attempt := 0; attempt < 10; attempt++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute, 0)

	b.Next()
	b.Next()
	b.Next()
	assert.Equal(t, 3, b.Attempts())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, time.Second, b.Next())
}

func TestBackoffSanitizesInputs(t *testing.T) {
	t.Run("non positive base", func(t *testing.T) {
		b := NewBackoff(0, time.Minute, 0)
		assert.Equal(t, time.Second, b.Next())
	})

	t.Run("max below base", func(t *testing.T) {
		b := NewBackoff(10*time.Second, time.Second, 0)
		assert.Equal(t, 10*time.Second, b.Next())
		assert.Equal(t, 10*time.Second, b.Next())
	})

	t.Run("out of range jitter disabled", func(t *testing.T) {
		b := NewBackoff(time.Second, time.Minute, 5)
		b.rnd = func() float64 { return 1 }
		assert.Equal(t, time.Second, b.Next())
	})
}
