package backoff

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Strategy computes the delay that follows the current one.
type Strategy interface {
	Next(current time.Duration) time.Duration
}

// Squaring squares the current delay measured in seconds (10s becomes 100s)
// and caps the result at Max. It never shrinks the delay.
type Squaring struct {
	Max time.Duration
}

func (s Squaring) Next(current time.Duration) time.Duration {
	secs := current.Seconds()
	next := secs * secs * float64(time.Second)
	if next > float64(s.Max) || math.IsInf(next, 0) {
		return s.Max
	}
	if time.Duration(next) < current {
		return min(current, s.Max)
	}
	return time.Duration(next)
}

// Exponential multiplies the current delay by Multiplier, caps it at Max and
// spreads it by up to JitterFactor in either direction.
type Exponential struct {
	Multiplier   float64
	Max          time.Duration
	JitterFactor float64
}

func (e Exponential) Next(current time.Duration) time.Duration {
	mult := e.Multiplier
	if mult < 1 {
		mult = 2
	}
	delay := float64(current) * mult
	if current <= 0 {
		delay = float64(time.Second)
	}
	if delay > float64(e.Max) {
		delay = float64(e.Max)
	}

	if e.JitterFactor > 0 {
		jitter := delay * e.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// New returns the named strategy capped at max.
func New(name string, max time.Duration) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "squaring":
		return Squaring{Max: max}, nil
	case "exponential":
		return Exponential{Multiplier: 2, Max: max, JitterFactor: 0.1}, nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", name)
	}
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
