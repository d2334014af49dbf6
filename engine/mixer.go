// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/gopxl/beep"

	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/looper"
)

// Mixer sums its playing voices into one interleaved stream. It never ends
// on its own and produces silence while nothing plays.
type Mixer struct {
	loader *Loader
	clk    clock.Clock

	mu     sync.Mutex
	voices []*Voice
	closed bool
}

var (
	_ audio.Source   = (*Mixer)(nil)
	_ looper.Backend = (*Mixer)(nil)
)

// NewMixer creates a mixer in the loader's format. clk drives the voices'
// status reporters.
func NewMixer(loader *Loader, clk clock.Clock) *Mixer {
	if clk == nil {
		clk = clock.New()
	}

	return &Mixer{loader: loader, clk: clk}
}

// NewBuffer returns a new unloaded Voice.
func (m *Mixer) NewBuffer() looper.Buffer {
	return newVoice(m)
}

func (m *Mixer) SampleRate() int { return m.loader.SampleRate() }
func (m *Mixer) Channels() int   { return m.loader.Channels() }
func (m *Mixer) BufSize() int    { return 1024 * m.loader.Channels() }

func (m *Mixer) ReadSamples(dst []float32) (int, error) {
	channels := m.Channels()
	if len(dst)%channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}

	clear(dst)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.EOF
	}
	voices := slices.Clone(m.voices)
	m.mu.Unlock()

	for _, v := range voices {
		v.mix(dst, channels)
	}

	return len(dst), nil
}

// Close unloads every voice. Reads return io.EOF afterwards.
func (m *Mixer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	voices := m.voices
	m.voices = nil
	m.mu.Unlock()

	for _, v := range voices {
		v.release()
	}

	return nil
}

// Voices returns how many voices are loaded.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.voices)
}

// Playing returns how many voices are playing.
func (m *Mixer) Playing() int {
	m.mu.Lock()
	voices := slices.Clone(m.voices)
	m.mu.Unlock()

	n := 0
	for _, v := range voices {
		v.mu.Lock()
		if v.playing {
			n++
		}
		v.mu.Unlock()
	}

	return n
}

// Streamer adapts the mixer to a beep.Streamer. Mono is copied to both
// speaker channels; anything wider than stereo keeps the first two.
func (m *Mixer) Streamer() beep.Streamer {
	var buf []float32

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		channels := m.Channels()
		if need := len(samples) * channels; cap(buf) < need {
			buf = make([]float32, need)
		} else {
			buf = buf[:need]
		}

		if _, err := m.ReadSamples(buf); err != nil {
			return 0, false
		}

		for i := range samples {
			frame := buf[i*channels : (i+1)*channels]
			l := float64(frame[0])
			r := l
			if channels > 1 {
				r = float64(frame[1])
			}
			samples[i] = [2]float64{l, r}
		}

		return len(samples), true
	})
}

// Format describes the mixer output for beep.
func (m *Mixer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(m.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
}

func (m *Mixer) attach(v *Voice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMixerClosed
	}
	m.voices = append(m.voices, v)

	return nil
}

func (m *Mixer) detach(v *Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.voices = slices.DeleteFunc(m.voices, func(o *Voice) bool { return o == v })
}
