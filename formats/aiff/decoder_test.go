// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    io.Reader
	}{
		{name: "empty", r: bytes.NewReader(nil)},
		{name: "garbage", r: bytes.NewReader([]byte("FORM....not really an aiff file"))},
		{name: "non seekable", r: io.MultiReader(bytes.NewReader([]byte("RIFF....WAVE")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(tt.r); !errors.Is(err, ErrNotAiffFile) {
				t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
			}
		})
	}
}
