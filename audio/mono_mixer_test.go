// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"

	"github.com/ik5/loopmix/internal/audiotest"
)

func TestMonoMixer_Downmix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		waveform func(sample, channel int) float32
		want     float32
	}{
		{name: "mono passthrough", channels: 1, waveform: func(int, int) float32 { return 0.3 }, want: 0.3},
		{name: "stereo average", channels: 2, waveform: func(_, c int) float32 { return float32(c) }, want: 0.5},
		{name: "six channels", channels: 6, waveform: func(_, c int) float32 { return float32(c) / 10 }, want: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMonoMixer(audiotest.NewMockSource(8000, tt.channels, 100, tt.waveform))
			if m.Channels() != 1 || m.SampleRate() != 8000 {
				t.Fatalf("metadata = %d Hz / %d ch, want 8000 Hz / 1 ch", m.SampleRate(), m.Channels())
			}

			out := drain(t, m, 64)
			if len(out) != 100 {
				t.Fatalf("got %d frames, want 100", len(out))
			}
			for i, s := range out {
				if math.Abs(float64(s-tt.want)) > 1e-6 {
					t.Fatalf("out[%d] = %v, want %v", i, s, tt.want)
				}
			}
		})
	}
}

func TestMonoMixer_EmptyBuffer(t *testing.T) {
	t.Parallel()

	m := NewMonoMixer(audiotest.NewSilentSource(8000, 2, 10))
	n, err := m.ReadSamples(nil)
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = %d, %v, want 0, nil", n, err)
	}
}

func TestUpmixer(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 10, func(s, _ int) float32 { return float32(s) })
	u := NewUpmixer(src, 2)

	out := drain(t, u, 8)
	if len(out) != 20 {
		t.Fatalf("got %d samples, want 20", len(out))
	}
	for f := range 10 {
		if out[2*f] != float32(f) || out[2*f+1] != float32(f) {
			t.Fatalf("frame %d = %v,%v, want %d in both channels", f, out[2*f], out[2*f+1], f)
		}
	}

	if _, err := NewUpmixer(audiotest.NewSilentSource(8000, 1, 1), 2).ReadSamples(make([]float32, 3)); err != ErrInvalidDstSize {
		t.Errorf("odd dst error = %v, want ErrInvalidDstSize", err)
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		srcRate     int
		srcChannels int
		rate        int
		channels    int
	}{
		{name: "identity", srcRate: 48000, srcChannels: 2, rate: 48000, channels: 2},
		{name: "mono to stereo", srcRate: 48000, srcChannels: 1, rate: 48000, channels: 2},
		{name: "stereo to mono", srcRate: 44100, srcChannels: 2, rate: 48000, channels: 1},
		{name: "quad to stereo", srcRate: 22050, srcChannels: 4, rate: 44100, channels: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewConstantSource(tt.srcRate, tt.srcChannels, 1000, 0.2)
			out, err := Convert(src, tt.rate, tt.channels)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if out.SampleRate() != tt.rate || out.Channels() != tt.channels {
				t.Errorf("Convert() = %d Hz / %d ch, want %d Hz / %d ch",
					out.SampleRate(), out.Channels(), tt.rate, tt.channels)
			}
			if tt.name == "identity" && out != Source(src) {
				t.Error("identity conversion should return the source unchanged")
			}
		})
	}
}

func TestConvert_Invalid(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 10)
	if _, err := Convert(src, 0, 1); err == nil {
		t.Error("expected error for zero rate")
	}
	if _, err := Convert(src, 8000, 0); err != ErrInvalidChannels {
		t.Errorf("Convert() error = %v, want ErrInvalidChannels", err)
	}
}

func TestMonoMixer_ClosePropagates(t *testing.T) {
	t.Parallel()

	m := NewMonoMixer(audiotest.NewSilentSource(8000, 2, 10))
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	_, err := m.ReadSamples(make([]float32, 4))
	if err != nil && err != io.EOF {
		t.Errorf("ReadSamples() after close error = %v", err)
	}
}

func BenchmarkMonoMixer_StereoToMono(b *testing.B) {
	b.ReportAllocs()
	buf := make([]float32, 2048)

	for range b.N {
		m := NewMonoMixer(audiotest.NewSineSource(44100, 2, 44100, 440))
		for {
			if _, err := m.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
