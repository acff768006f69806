package browser

import (
	"context"
	"math/rand"
	"time"
)

// Pacer pauses for a uniformly random duration between page loads.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// NewPacer returns a pacer drawing delays from [min, max].
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{Min: min, Max: max, sleep: sleepContext}
}

// Next draws the next delay.
func (p *Pacer) Next() time.Duration {
	span := p.Max - p.Min
	if span <= 0 {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int63n(int64(span)+1))
}

// Wait blocks for the next delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Next()
	if d <= 0 {
		return ctx.Err()
	}
	if p.sleep == nil {
		return sleepContext(ctx, d)
	}
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
