// File: internal/fixengine/backoff.go
package fixengine

import (
	"context"
	"math/rand"
	"time"
)

// Policy is an explicit, independently testable retry delay schedule:
// base * 2^attempt plus random jitter, capped at Max. It is deliberately
// decoupled from the I/O calls it paces.
type Policy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// Delay returns the pause before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter) + 1))
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// sleep pauses for d or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
