package ticketing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the default minimum spacing between remote
// calls. It bounds outbound request rate regardless of batch size.
const DefaultMinInterval = time.Second

// Pacer enforces a minimum interval between remote calls. All calls
// made through one client share one pacer, so case-by-case
// reconciliation cannot burst past the configured rate.
type Pacer struct {
	bucket *rate.Limiter
}

// NewPacer creates a pacer with the given minimum inter-call interval.
// Non-positive intervals fall back to DefaultMinInterval.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Pacer{
		bucket: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait suspends until the interval since the previous call has
// elapsed, or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.bucket.Wait(ctx)
}
