// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Convert builds a pipeline that delivers src at rate Hz with the given
// channel count. Stages that would be no-ops are skipped.
func Convert(src Source, rate, channels int) (Source, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", rate)
	}
	if channels <= 0 || src.Channels() <= 0 {
		return nil, ErrInvalidChannels
	}

	out := src
	if out.SampleRate() != rate {
		out = NewResampler(out, rate)
	}

	switch {
	case out.Channels() == channels:
	case channels == 1:
		out = NewMonoMixer(out)
	case out.Channels() == 1:
		out = NewUpmixer(out, channels)
	default:
		out = NewUpmixer(NewMonoMixer(out), channels)
	}

	return out, nil
}
