// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer 3 files through github.com/hajimehoshi/go-mp3.
//
// go-mp3 always yields 16-bit stereo, so every Source from this package
// reports two channels regardless of the file. The source also reports its
// length in frames, letting clip decoding size its buffer up front.
package mp3
