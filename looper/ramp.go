// SPDX-License-Identifier: EPL-2.0

package looper

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Ramp describes one volume fade.
type Ramp struct {
	From, To float64
	Steps    int
	Duration time.Duration
	// Keep is checked at every suspension point. Returning false abandons
	// the ramp where it is. Nil means always keep going.
	Keep func() bool
}

func (r Ramp) keep() bool {
	return r.Keep == nil || r.Keep()
}

// Ramper runs volume fades on a buffer.
type Ramper interface {
	// Run reports whether the ramp reached r.To.
	Run(ctx context.Context, b Buffer, r Ramp) (bool, error)
}

// SteppedRamper moves the volume linearly in r.Steps equal time steps.
type SteppedRamper struct {
	Clock clock.Clock
}

func (s SteppedRamper) Run(ctx context.Context, b Buffer, r Ramp) (bool, error) {
	steps := max(r.Steps, 1)
	step := r.Duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if !r.keep() {
			return false, nil
		}

		if err := sleep(ctx, s.Clock, step); err != nil {
			return false, err
		}

		if !r.keep() {
			return false, nil
		}

		v := r.From + (r.To-r.From)*float64(i)/float64(steps)
		if err := b.SetVolume(ctx, v); err != nil {
			return false, err
		}
	}

	return true, nil
}

// AtomicRamper sets the target volume in one call.
type AtomicRamper struct{}

func (AtomicRamper) Run(ctx context.Context, b Buffer, r Ramp) (bool, error) {
	if !r.keep() {
		return false, nil
	}

	if err := b.SetVolume(ctx, r.To); err != nil {
		return false, err
	}

	return true, nil
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := clk.Timer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
