package sheets

import (
	"context"
	"math/rand"
	"time"
)

// Pacer spaces out consecutive sheet reads to respect the spreadsheet
// source's rate limit. Each wait is the base delay plus a uniform random
// addition in [0, Jitter). Pacing is per invocation, not shared across
// concurrent builds: the source's quota is generous relative to expected
// call volume.
type Pacer struct {
	// Base is the fixed portion of every delay.
	Base time.Duration

	// Jitter is the maximum random addition on top of Base.
	Jitter time.Duration
}

// DefaultPacer returns the pacing used against the Google Sheets read quota.
func DefaultPacer() *Pacer {
	return &Pacer{
		Base:   300 * time.Millisecond,
		Jitter: 400 * time.Millisecond,
	}
}

// Wait sleeps for one jittered delay, honoring context cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Base
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
