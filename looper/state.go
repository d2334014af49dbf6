// SPDX-License-Identifier: EPL-2.0

package looper

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateIdle
	StatePlaying
	StateCrossfading
	StateFadingOut
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateCrossfading:
		return "crossfading"
	case StateFadingOut:
		return "fading-out"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// loaded reports whether the buffers hold the source.
func (s State) loaded() bool {
	switch s {
	case StateIdle, StatePlaying, StateCrossfading, StateFadingOut:
		return true
	default:
		return false
	}
}

type action int

const (
	actionNone action = iota
	actionPlay
	actionPause
)
