// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func encode(t *testing.T, rate, channels int, samples []int16) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := WritePCM16(&buf, rate, channels, samples); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}

	return buf.Bytes()
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 16384, -16384, 32767, -32768, 0}
	data := encode(t, 22050, 2, samples)

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 22050 || src.Channels() != 2 {
		t.Fatalf("metadata = %d Hz / %d ch, want 22050 Hz / 2 ch", src.SampleRate(), src.Channels())
	}

	buf := make([]float32, 64)
	var got []float32
	for {
		n, err := src.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i, s := range samples {
		want := float32(s) / 32768
		if math.Abs(float64(got[i]-want)) > 1e-4 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	data := encode(t, 8000, 1, []int16{1, 2, 3, 4})

	// io.MultiReader hides Seek
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", src.SampleRate())
	}
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	floatWav := encode(t, 8000, 1, []int16{0, 0})
	binary.LittleEndian.PutUint16(floatWav[20:22], 3)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "not riff", data: []byte("definitely not a wav file at all, just text padding"), want: ErrNotWavFile},
		{name: "empty", data: nil, want: ErrNotWavFile},
		{name: "float encoding", data: floatWav, want: ErrOnlyPCMSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}
