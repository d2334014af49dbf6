// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"io"
	"testing"
)

type mockOggReader struct {
	rate, channels int
	data           []float32
	pos            int
}

func (m *mockOggReader) SampleRate() int { return m.rate }
func (m *mockOggReader) Channels() int   { return m.channels }
func (m *mockOggReader) Length() int64   { return int64(len(m.data) / m.channels) }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}

	n := copy(p, m.data[m.pos:])
	m.pos += n

	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("OggS but not really"))); err == nil {
		t.Error("Decode() expected error for garbage input")
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		dstLen   int
		wantN    int
	}{
		{name: "mono", channels: 1, dstLen: 4, wantN: 4},
		{name: "stereo whole frames", channels: 2, dstLen: 4, wantN: 4},
		{name: "stereo odd dst trimmed", channels: 2, dstLen: 5, wantN: 4},
		{name: "dst smaller than a frame", channels: 2, dstLen: 1, wantN: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dec := &mockOggReader{rate: 48000, channels: tt.channels, data: []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}}
			src := &source{dec: dec, channels: tt.channels}

			n, err := src.ReadSamples(make([]float32, tt.dstLen))
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != tt.wantN {
				t.Errorf("ReadSamples() = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestSource_Frames(t *testing.T) {
	t.Parallel()

	src := &source{dec: &mockOggReader{rate: 48000, channels: 2, data: make([]float32, 20)}, channels: 2}
	if got := src.Frames(); got != 10 {
		t.Errorf("Frames() = %d, want 10", got)
	}

	empty := &source{dec: &mockOggReader{rate: 48000, channels: 2}, channels: 2}
	if got := empty.Frames(); got != -1 {
		t.Errorf("Frames() on unknown length = %d, want -1", got)
	}
}
