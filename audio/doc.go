// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM building blocks the loop engine is made of.
//
// # Source Interface
//
// Everything that produces audio implements Source: format decoders,
// pipeline stages, and the engine's mixer itself.
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1.0, 1.0]. ReadSamples returns io.EOF
// when the stream is finished.
//
// # Pipelines
//
// Resampler changes the sample rate with cubic interpolation, MonoMixer
// averages channels down to one and Upmixer copies mono into N channels.
// Convert chains whichever of them a source needs to match a target format:
//
//	src, _ := dec.Decode(f)
//	out, err := audio.Convert(src, 48000, 2)
//
// # Clips
//
// Looping tracks are decoded once into a Clip and replayed from memory.
// ReadAll drains any Source into a Clip, Silence builds an empty one and
// ClipSource plays a Clip back as a Source.
//
// # Format Registry
//
// Registry maps format keys to decoders. Keys are file extensions, so
// ForPath picks the right decoder for a file on disk:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	dec, err := reg.ForPath("rain.wav")
package audio
