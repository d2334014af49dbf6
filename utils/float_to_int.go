// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1,1] and scales it to the int16 range.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 keeps +1.0 from overflowing
	return int16(x * 32767.0)
}

// IntToFloat32 normalizes a signed PCM sample of the given bit depth to [-1,1].
// Unknown depths are treated as 16 bit.
func IntToFloat32(v int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		// 8 bit PCM is unsigned
		return float32(v-128) / 128.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(float64(v) / 2147483648.0)
	default:
		return float32(v) / 32768.0
	}
}
