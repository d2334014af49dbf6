// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes 16-bit PCM AIFF files through github.com/go-audio/aiff.
//
//	src, err := aiff.Decoder{}.Decode(f)
//
// Other bit depths return ErrOnlyPCM16bitSupported.
package aiff
