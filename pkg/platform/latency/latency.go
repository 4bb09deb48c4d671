// Package latency simulates network and computation delays that respect
// context cancellation.
package latency

import (
	"context"
	"time"
)

// Wait blocks for d or until ctx ends, whichever comes first. A non-positive
// d returns immediately with ctx's error, if any.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
