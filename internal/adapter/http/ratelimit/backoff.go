package ratelimit

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes an exponential delay from a failure count.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool

	rand func() float64
}

func NewBackoff(min, max time.Duration, factor float64) *Backoff {
	return &Backoff{
		Min:    min,
		Max:    max,
		Factor: factor,
		Jitter: true,
		rand:   rand.Float64,
	}
}

// Duration returns the delay after the given number of consecutive failures.
// With jitter the result lies in [d/2, d].
func (b *Backoff) Duration(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}

	d := float64(b.Min) * math.Pow(b.Factor, float64(failures-1))
	if d > float64(b.Max) || math.IsInf(d, 1) {
		d = float64(b.Max)
	}

	if b.Jitter && b.rand != nil {
		d *= 0.5 + b.rand()*0.5
	}
	return time.Duration(d)
}
