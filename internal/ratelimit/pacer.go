package ratelimit

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// Pacer spreads the requests of one account so that the offer and consign
// loops sharing its session stay under the configured rate.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows rps requests per second in bursts of up to two seconds'
// worth, and at least one.
func NewPacer(rps float64) *Pacer {
	burst := int(math.Ceil(rps * 2))
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next request may go out. A deadline too close to
// allow that fails at once with an error wrapping context.DeadlineExceeded.
func (p *Pacer) Wait(ctx context.Context) error {
	err := p.limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (p *Pacer) Burst() int {
	return p.limiter.Burst()
}

// Available is the number of requests that may be sent right now.
func (p *Pacer) Available() int {
	return int(math.Floor(p.limiter.Tokens()))
}
