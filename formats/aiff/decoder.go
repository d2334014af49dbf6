// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaiff "github.com/go-audio/aiff"

	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/formats/internal/pcm"
)

var (
	ErrNotAiffFile           = errors.New("not an AIFF file")
	ErrOnlyPCM16bitSupported = errors.New("only 16-bit PCM AIFF is supported")
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := goaiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}

	dec.ReadInfo()

	if dec.BitDepth != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}

	f := dec.Format()
	if f == nil || f.NumChannels == 0 || f.SampleRate == 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	return pcm.NewSource(dec, 16), nil
}
