// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/loopmix/utils"
)

// Resampler streams from src to target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// A one-pole low-pass runs on the input when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames consumed per output frame
	channels int

	// window[0] = t-1, window[1] = t0, window[2] = t+1, window[3] = t+2
	window [4][]float32
	have   [4]bool
	primed bool

	pos    float64 // fractional position between window[1] and window[2]
	srcBuf []float32
	eof    bool

	lowpass     bool
	filterAlpha float32
	filterState []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		lowpass:     ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}

	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Frames estimates the output length from the source length.
func (r *Resampler) Frames() int64 {
	n := frames(r.src)
	if n < 0 {
		return -1
	}

	return int64(float64(n) / r.ratio)
}

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// readFrame pulls one source frame into dst. ok is false when nothing was read.
func (r *Resampler) readFrame(dst []float32) (ok bool, err error) {
	n, err := r.src.ReadSamples(r.srcBuf)
	if n > 0 {
		copy(dst, r.srcBuf[:n])
		if r.lowpass {
			for c := range r.channels {
				dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
				r.filterState[c] = dst[c]
			}
		}
		ok = true
	}

	if err == io.EOF {
		r.eof = true
		return ok, nil
	}
	if err != nil {
		return ok, fmt.Errorf("%w", err)
	}

	return ok, nil
}

// prime fills the interpolation window, padding with the last frame on short input.
func (r *Resampler) prime() error {
	r.primed = true

	for i := range r.window {
		if r.eof {
			if i == 0 {
				return io.EOF
			}
			copy(r.window[i], r.window[i-1])
			r.have[i] = true
			continue
		}

		if i == 0 {
			// seed the filter so the first output has no warm-up transient
			n, err := r.src.ReadSamples(r.srcBuf)
			if n > 0 {
				copy(r.filterState, r.srcBuf[:n])
				copy(r.window[0], r.srcBuf[:n])
				r.have[0] = true
			}
			if err == io.EOF {
				r.eof = true
				if n == 0 {
					return io.EOF
				}
			} else if err != nil {
				return fmt.Errorf("%w", err)
			}
			continue
		}

		ok, err := r.readFrame(r.window[i])
		if err != nil {
			return err
		}
		if !ok {
			copy(r.window[i], r.window[i-1])
		}
		r.have[i] = true
	}

	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	if r.eof && !r.have[3] {
		return io.EOF
	}

	first := r.window[0]
	copy(r.window[:], r.window[1:])
	r.window[3] = first
	copy(r.have[:], r.have[1:])

	if r.eof {
		r.have[3] = false
		if !r.have[2] {
			return io.EOF
		}
		return nil
	}

	ok, err := r.readFrame(r.window[3])
	if err != nil {
		return err
	}
	r.have[3] = ok

	if !ok && !r.have[2] {
		return io.EOF
	}

	return nil
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	want := len(dst) / r.channels

	for written < want {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				if err == io.EOF && written > 0 {
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		if !r.have[1] || !r.have[2] {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		x := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			y0 := r.window[1][c]
			if r.have[0] {
				y0 = r.window[0][c]
			}
			y3 := r.window[2][c]
			if r.have[3] {
				y3 = r.window[3][c]
			}
			out[c] = utils.CubicInterpolate(y0, r.window[1][c], r.window[2][c], y3, x)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
