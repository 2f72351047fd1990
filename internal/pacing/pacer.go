package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between successive operations in one
// sequential loop. Each loop owns its own Pacer, so pacing one offender's
// enforcement run never delays an unrelated run. The first Wait returns
// immediately; every later Wait blocks until the interval has elapsed since
// the previous one.
type Pacer struct {
	limiter *rate.Limiter
}

func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next operation may proceed.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
