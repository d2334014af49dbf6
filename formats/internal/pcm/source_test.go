// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

type fakeReader struct {
	format *goaudio.Format
	data   []int
	pos    int
	err    error
}

func (f *fakeReader) Format() *goaudio.Format { return f.format }

func (f *fakeReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	n := copy(buf.Data, f.data[f.pos:])
	f.pos += n

	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		data     []int
		want     []float32
	}{
		{name: "16 bit", bitDepth: 16, data: []int{0, 16384, -16384, -32768}, want: []float32{0, 0.5, -0.5, -1}},
		{name: "24 bit", bitDepth: 24, data: []int{4194304, -8388608}, want: []float32{0.5, -1}},
		{name: "8 bit unsigned", bitDepth: 8, data: []int{128, 0, 192}, want: []float32{0, -1, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeReader{
				format: &goaudio.Format{SampleRate: 8000, NumChannels: 1},
				data:   tt.data,
			}
			src := NewSource(r, tt.bitDepth)

			buf := make([]float32, 16)
			n, err := src.ReadSamples(buf)
			if err != io.EOF {
				t.Fatalf("short read error = %v, want EOF", err)
			}
			if n != len(tt.want) {
				t.Fatalf("n = %d, want %d", n, len(tt.want))
			}
			for i := range tt.want {
				if buf[i] != tt.want[i] {
					t.Errorf("buf[%d] = %v, want %v", i, buf[i], tt.want[i])
				}
			}
		})
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := NewSource(&fakeReader{format: &goaudio.Format{SampleRate: 44100, NumChannels: 2}}, 16)
	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Errorf("metadata = %d Hz / %d ch, want 44100 Hz / 2 ch", src.SampleRate(), src.Channels())
	}
	if src.BufSize() != 4096 {
		t.Errorf("BufSize() before first read = %d, want 4096", src.BufSize())
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := NewSource(&fakeReader{format: &goaudio.Format{SampleRate: 8000, NumChannels: 1}, err: boom}, 16)

	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestSource_EmptyDst(t *testing.T) {
	t.Parallel()

	src := NewSource(&fakeReader{format: &goaudio.Format{SampleRate: 8000, NumChannels: 1}}, 16)
	if n, err := src.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = %d, %v, want 0, nil", n, err)
	}
}
