// SPDX-License-Identifier: EPL-2.0

// Package engine is a software playback backend for the looper package.
//
// A Mixer owns any number of Voices. Each Voice is one looper.Buffer: a
// decoded Clip with a playhead, a playing flag and a gain. The Mixer is an
// audio.Source that sums every playing voice, so it can be drained by a
// sound device (see Streamer) or by an offline renderer.
//
// Playheads only move when samples are pulled. A voice that reaches the end
// of its clip stops there with Position equal to Duration; looping is the
// looper's job.
//
// Clips are decoded once per locator by the Loader and shared by every
// voice that loads the same locator. Locators with the "builtin:" prefix
// name in-memory clips; "builtin:silence" always exists.
package engine
