package webhook

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy returns the delay before retry attempt n (starting at 1).
type BackoffStrategy interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxInterval, with up to JitterFactor of random spread.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// DefaultBackoff is used when no strategy is configured.
var DefaultBackoff = ExponentialBackoff{
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     30 * time.Second,
	Multiplier:      2.0,
	JitterFactor:    0.1,
}

func (b ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	interval := float64(b.InitialInterval) * math.Pow(mult, float64(attempt-1))
	if b.MaxInterval > 0 && interval > float64(b.MaxInterval) {
		interval = float64(b.MaxInterval)
	}
	if b.JitterFactor > 0 {
		spread := interval * b.JitterFactor
		interval += spread * (2*rand.Float64() - 1)
	}
	return time.Duration(interval)
}

// ConstantBackoff waits the same interval before every retry.
type ConstantBackoff time.Duration

func (b ConstantBackoff) NextInterval(int) time.Duration { return time.Duration(b) }
