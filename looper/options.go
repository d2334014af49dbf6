// SPDX-License-Identifier: EPL-2.0

package looper

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Options tunes a Looper. Zero fields take the DefaultOptions value.
type Options struct {
	// ActionDebounce drops a repeat of the same play or pause action.
	ActionDebounce time.Duration
	// VolumeDebounce coalesces SetVolume calls into one apply.
	VolumeDebounce time.Duration
	// FadeDuration is the length of the loop crossfade and of PauseWithFade.
	FadeDuration   time.Duration
	CrossfadeSteps int
	FadeOutSteps   int
	StatusInterval time.Duration

	Clock  clock.Clock
	Ramper Ramper
}

func DefaultOptions() Options {
	return Options{
		ActionDebounce: time.Second,
		VolumeDebounce: 50 * time.Millisecond,
		FadeDuration:   2 * time.Second,
		CrossfadeSteps: 10,
		FadeOutSteps:   20,
		StatusInterval: 200 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.ActionDebounce <= 0 {
		o.ActionDebounce = d.ActionDebounce
	}
	if o.VolumeDebounce <= 0 {
		o.VolumeDebounce = d.VolumeDebounce
	}
	if o.FadeDuration <= 0 {
		o.FadeDuration = d.FadeDuration
	}
	if o.CrossfadeSteps <= 0 {
		o.CrossfadeSteps = d.CrossfadeSteps
	}
	if o.FadeOutSteps <= 0 {
		o.FadeOutSteps = d.FadeOutSteps
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = d.StatusInterval
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Ramper == nil {
		o.Ramper = SteppedRamper{Clock: o.Clock}
	}

	return o
}
