// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestWritePCM16_Header(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		samples  int
	}{
		{name: "mono 8k", rate: 8000, channels: 1, samples: 10},
		{name: "stereo 48k", rate: 48000, channels: 2, samples: 20000},
		{name: "empty", rate: 44100, channels: 2, samples: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := WritePCM16(&buf, tt.rate, tt.channels, make([]int16, tt.samples)); err != nil {
				t.Fatalf("WritePCM16() error = %v", err)
			}

			b := buf.Bytes()
			if len(b) != 44+tt.samples*2 {
				t.Fatalf("file size = %d, want %d", len(b), 44+tt.samples*2)
			}
			if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
				t.Fatal("missing RIFF/WAVE/data markers")
			}
			if got := binary.LittleEndian.Uint16(b[22:24]); int(got) != tt.channels {
				t.Errorf("channels = %d, want %d", got, tt.channels)
			}
			if got := binary.LittleEndian.Uint32(b[24:28]); int(got) != tt.rate {
				t.Errorf("sample rate = %d, want %d", got, tt.rate)
			}
			if got := binary.LittleEndian.Uint32(b[28:32]); int(got) != tt.rate*tt.channels*2 {
				t.Errorf("byte rate = %d, want %d", got, tt.rate*tt.channels*2)
			}
			if got := binary.LittleEndian.Uint32(b[40:44]); int(got) != tt.samples*2 {
				t.Errorf("data size = %d, want %d", got, tt.samples*2)
			}
		})
	}
}

func TestWritePCM16_Samples(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WritePCM16(&buf, 8000, 1, []int16{1, -1, 32767}); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}

	want := []byte{0x01, 0x00, 0xff, 0xff, 0xff, 0x7f}
	if got := buf.Bytes()[44:]; !bytes.Equal(got, want) {
		t.Errorf("payload = %x, want %x", got, want)
	}
}

func TestWritePCM16_InvalidChannels(t *testing.T) {
	t.Parallel()

	if err := WritePCM16(&bytes.Buffer{}, 8000, 0, nil); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("WritePCM16() error = %v, want ErrInvalidChannels", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWritePCM16_WriteError(t *testing.T) {
	t.Parallel()

	if err := WritePCM16(failWriter{}, 8000, 1, []int16{1}); err == nil {
		t.Error("expected error from failing writer")
	}
}

func BenchmarkWritePCM16(b *testing.B) {
	samples := make([]int16, 48000*2)
	var buf bytes.Buffer

	b.ReportAllocs()
	for range b.N {
		buf.Reset()
		_ = WritePCM16(&buf, 48000, 2, samples)
	}
}
