package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between outbound calls made through a
// single client instance. All workers sharing the client queue on the same
// gate, so the effective external call rate is capped regardless of pool
// size.
type Gate struct {
	lim *rate.Limiter
}

func NewGate(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		return &Gate{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{lim: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Acquire blocks until the caller may proceed, or until ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.lim.Wait(ctx)
}
