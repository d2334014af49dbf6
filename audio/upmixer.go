// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Upmixer copies a mono source into every channel of an N channel stream.
type Upmixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewUpmixer(src Source, channels int) *Upmixer {
	return &Upmixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

func (u *Upmixer) SampleRate() int { return u.src.SampleRate() }
func (u *Upmixer) Channels() int   { return u.channels }
func (u *Upmixer) BufSize() int    { return u.src.BufSize() }
func (u *Upmixer) Frames() int64   { return frames(u.src) }

func (u *Upmixer) Close() error {
	if err := u.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (u *Upmixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%u.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	want := len(dst) / u.channels
	if want == 0 {
		return 0, nil
	}
	if cap(u.tmp) < want {
		u.tmp = make([]float32, want)
	}
	u.tmp = u.tmp[:want]

	n, err := u.src.ReadSamples(u.tmp)
	for f := range n {
		out := dst[f*u.channels : (f+1)*u.channels]
		for c := range out {
			out[c] = u.tmp[f]
		}
	}

	return n * u.channels, err
}
