// SPDX-License-Identifier: EPL-2.0

package output_test

import (
	"testing"
	"time"

	"github.com/ik5/loopmix/output"
)

func TestBufferFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate    int
		latency time.Duration
		want    int
	}{
		{rate: 48000, latency: 100 * time.Millisecond, want: 4800},
		{rate: 44100, latency: 50 * time.Millisecond, want: 2205},
		{rate: 48000, latency: 0, want: 1},
	}

	for _, tt := range tests {
		if got := output.BufferFrames(tt.rate, tt.latency); got != tt.want {
			t.Errorf("BufferFrames(%d, %v) = %d, want %d", tt.rate, tt.latency, got, tt.want)
		}
	}
}
