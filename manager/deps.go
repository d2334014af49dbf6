// SPDX-License-Identifier: EPL-2.0

package manager

import (
	"context"

	"github.com/ik5/loopmix/mix"
)

// Resolver turns a file into a local playable locator.
type Resolver interface {
	// Contains reports whether f is available without a download.
	Contains(f mix.AudioFile) bool
	Resolve(ctx context.Context, f mix.AudioFile) (string, error)
}

// LocalResolver uses every locator as is.
type LocalResolver struct{}

func (LocalResolver) Contains(mix.AudioFile) bool { return true }

func (LocalResolver) Resolve(_ context.Context, f mix.AudioFile) (string, error) {
	return f.Locator, nil
}

// SessionHook updates the system "now playing" display.
type SessionHook interface {
	UpdateMetadata(ctx context.Context, mixID, title string) error
}

type nopSession struct{}

func (nopSession) UpdateMetadata(context.Context, string, string) error { return nil }

// Status is the aggregate playback status of the manager.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

// ParseStatus accepts "playing", "paused" and "stopped".
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPlaying, StatusPaused, StatusStopped:
		return st, true
	default:
		return "", false
	}
}

// StatusCallback is told about status changes that did not come from the
// manager's own calls, such as a pause from the lock screen.
type StatusCallback func(ctx context.Context, status Status)
