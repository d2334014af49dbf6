// SPDX-License-Identifier: EPL-2.0

package looper

import (
	"context"
	"time"
)

// Status is a snapshot of a Buffer's playback.
type Status struct {
	Loaded   bool
	Playing  bool
	Position time.Duration
	Duration time.Duration
}

// AtEnd reports whether playback ran off the end of the buffer.
func (s Status) AtEnd() bool {
	return s.Duration > 0 && s.Position >= s.Duration
}

// Buffer is one playable handle on a decoded sound. Playback does not loop
// on its own: a buffer that reaches the end stops there.
type Buffer interface {
	Load(ctx context.Context, source string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// Stop pauses and rewinds to the start.
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, v float64) error
	SetPosition(ctx context.Context, d time.Duration) error
	Status(ctx context.Context) (Status, error)
	// SetStatusInterval sets how often the OnStatus callback fires while playing.
	SetStatusInterval(d time.Duration)
	OnStatus(fn func(Status))
	Unload(ctx context.Context) error
}

// Backend creates buffers.
type Backend interface {
	NewBuffer() Buffer
}
