// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// ClampVolume limits v to the playable range [0,1].
// NaN is treated as silence.
func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// RoundVolume rounds v to one decimal place, the granularity used when
// ramping between two volumes.
func RoundVolume(v float64) float64 {
	return math.Round(v*10) / 10
}
