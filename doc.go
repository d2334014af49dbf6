// SPDX-License-Identifier: EPL-2.0

// Package loopmix plays mixes of looping ambient sounds.
//
// A mix is a list of audio files, each with its own volume. Every file is
// looped without a gap by a looper that crossfades two buffers of the same
// sound, and a silent keep-alive track holds the playback session open
// while the mix is loaded.
//
// # Packages
//
//   - mix: the Mix and AudioFile value types
//   - looper: the crossfading looper and its Buffer contract
//   - engine: a software mixer whose voices are looper buffers
//   - manager: one looper per file of the loaded mix, plus the keep-alive
//   - playback: the "now playing" state and the controller that switches,
//     plays and stops mixes
//   - cache and store: downloaded files and saved mixes
//   - audio, formats/*: PCM sources and the wav, mp3, vorbis and aiff decoders
//   - config, output: settings and the speaker
//
// # Quick Start
//
// Open wires everything from a configuration:
//
//	cfg, _ := config.Load("loopmix.yaml")
//	sys, _ := loopmix.Open(cfg)
//	defer sys.Close(ctx)
//
//	m, _ := sys.Store.GetMix(ctx, "rainy-night")
//	_ = sys.Controller.PlayMix(ctx, m, playback.PlayOptions{})
//
//	spk, _ := output.Open(cfg.Engine.SampleRate, cfg.Engine.Buffer)
//	_ = spk.Play(sys.Mixer.Streamer(), sys.Mixer.Format())
//
// # Offline Rendering
//
// The mixer is an audio.Source, so a mix can be rendered without a device.
// With a mock clock, RenderMono16 advances time in step with the audio and
// fades land where they would in real playback:
//
//	mock := clock.NewMock()
//	sys, _ := loopmix.Open(cfg, loopmix.WithClock(mock))
//	...
//	pcm16, _ := loopmix.RenderMono16(sys.Mixer, mock, 30*time.Second, 0)
//
// # Formats
//
// NewRegistry knows wav, mp3, ogg/oga (Vorbis) and aiff/aif by extension.
// Files are decoded once, converted to the engine rate and channel count,
// and shared between the two buffers of a looper.
package loopmix
