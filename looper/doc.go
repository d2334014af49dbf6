// SPDX-License-Identifier: EPL-2.0

// Package looper plays one sound asset as a gapless, endlessly repeating
// stream with smooth volume fades.
//
// # Two buffers
//
// A Looper owns two Buffers loaded with the same source. One of them is
// active. When status updates show the active buffer is within one fade
// window of its end, the looper flips to the other buffer, rewinds it, starts
// it and crossfades the two: the outgoing buffer ramps down while the incoming
// one ramps up on the same schedule, so their volumes always add up to the
// target volume.
//
// # Actions
//
// Play, Pause and PauseWithFade are actions. Every action gets a sequence
// number, and in-flight work from an older action stops at its next
// suspension point once a newer action starts. A repeat of the same action
// inside ActionDebounce is dropped, which absorbs double taps.
//
// SetVolume updates the target volume at once and applies it to the buffers
// after VolumeDebounce, so a burst of calls results in a single apply. A
// running crossfade owns the buffer volumes, and applies arriving during it
// are dropped.
//
// # Backends
//
// Buffers come from a Backend. The engine package provides a software mixer
// backend, and tests use the fakes in internal/audiotest. Fades are delegated
// to a Ramper: SteppedRamper ramps in equal timed steps, AtomicRamper jumps
// straight to the target for platforms without fine grained volume control.
package looper
