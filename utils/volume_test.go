// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestClampVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{name: "in range", input: 0.4, want: 0.4},
		{name: "zero", input: 0, want: 0},
		{name: "one", input: 1, want: 1},
		{name: "negative", input: -0.2, want: 0},
		{name: "above one", input: 1.7, want: 1},
		{name: "NaN", input: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClampVolume(tt.input); got != tt.want {
				t.Errorf("ClampVolume(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input float64
		want  float64
	}{
		{input: 0.04, want: 0},
		{input: 0.06, want: 0.1},
		{input: 0.449, want: 0.4},
		{input: 0.96, want: 1},
		{input: 1, want: 1},
	}

	for _, tt := range tests {
		if got := RoundVolume(tt.input); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundVolume(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
