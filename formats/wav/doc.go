// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes WAV files.
//
// Decoding goes through github.com/go-audio/wav and accepts integer PCM at
// 8, 16, 24 or 32 bits, any channel count and any sample rate. Samples come
// out as float32 in [-1.0, 1.0]:
//
//	f, _ := os.Open("rain.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// Readers that cannot seek are buffered in memory first, since the RIFF
// chunk walk needs to seek.
//
// WritePCM16 writes interleaved 16-bit samples with a canonical 44 byte
// header. Offline mix renders use it.
package wav
