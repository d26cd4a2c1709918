// Package rategate paces calls into a single external service to at most
// one per configured interval, replacing a hand-rolled mutex+timestamp gate
// with golang.org/x/time/rate's token bucket.
package rategate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between successive admissions.
type Gate struct {
	limiter *rate.Limiter
}

// New builds a Gate that admits at most one caller per interval. An interval
// of zero or less disables pacing (every Wait returns immediately).
func New(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the gate admits the caller or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
