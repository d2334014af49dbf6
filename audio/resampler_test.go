// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"

	"github.com/ik5/loopmix/internal/audiotest"
)

func drain(t *testing.T, src Source, bufSize int) []float32 {
	t.Helper()

	buf := make([]float32, bufSize)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)

	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		srcRate int
		dstRate int
		frames  int
		want    int
	}{
		{name: "downsample 44.1k to 8k", srcRate: 44100, dstRate: 8000, frames: 44100, want: 8000},
		{name: "upsample 8k to 48k", srcRate: 8000, dstRate: 48000, frames: 8000, want: 48000},
		{name: "22.05k to 48k", srcRate: 22050, dstRate: 48000, frames: 22050, want: 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, 1, tt.frames, 440)
			got := len(drain(t, NewResampler(src, tt.dstRate), 1024))

			tolerance := tt.want / 100
			if got < tt.want-tolerance || got > tt.want+tolerance {
				t.Errorf("got %d samples, want %d ± %d", got, tt.want, tolerance)
			}
		})
	}
}

func TestResampler_ConstantSignalPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(44100, 2, 4410, 0.5)
	out := drain(t, NewResampler(src, 48000), 512)

	if len(out)%2 != 0 {
		t.Fatalf("got %d samples, not a whole number of stereo frames", len(out))
	}
	for i, s := range out {
		if math.Abs(float64(s-0.5)) > 0.01 {
			t.Fatalf("out[%d] = %v, want ≈0.5", i, s)
		}
	}
}

func TestResampler_VeryShortSource(t *testing.T) {
	t.Parallel()

	out := drain(t, NewResampler(audiotest.NewConstantSource(8000, 1, 2, 0.25), 16000), 64)
	if len(out) == 0 {
		t.Fatal("expected output from a two frame source")
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(8000, 1, 0), 16000)
	n, err := r.ReadSamples(make([]float32, 64))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = %d, %v, want 0, EOF", n, err)
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 100), 8000)
	if _, err := r.ReadSamples(make([]float32, 3)); err != ErrInvalidDstSize {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_Frames(t *testing.T) {
	t.Parallel()

	clip := &Clip{SampleRate: 48000, Channels: 1, Data: make([]float32, 48000)}
	r := NewResampler(NewClipSource(clip), 24000)
	if got := r.Frames(); got != 24000 {
		t.Errorf("Frames() = %d, want 24000", got)
	}

	if got := NewResampler(audiotest.NewSilentSource(8000, 1, 10), 16000).Frames(); got != -1 {
		t.Errorf("Frames() on unknown length = %d, want -1", got)
	}
}

func BenchmarkResampler_Upsample(b *testing.B) {
	b.ReportAllocs()
	buf := make([]float32, 4096)

	for range b.N {
		r := NewResampler(audiotest.NewSineSource(44100, 2, 44100, 440), 48000)
		for {
			if _, err := r.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
