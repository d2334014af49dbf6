// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"time"
)

// Clip is a fully decoded, interleaved PCM buffer.
type Clip struct {
	SampleRate int
	Channels   int
	Data       []float32
}

func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}

	return len(c.Data) / c.Channels
}

func (c *Clip) Duration() time.Duration {
	return c.PositionOf(c.Frames())
}

// PositionOf converts a frame index to a time offset.
func (c *Clip) PositionOf(frame int) time.Duration {
	if c.SampleRate == 0 {
		return 0
	}

	return time.Duration(int64(frame) * int64(time.Second) / int64(c.SampleRate))
}

// FrameAt converts a time offset to a frame index, clamped to the clip.
func (c *Clip) FrameAt(d time.Duration) int {
	if d <= 0 {
		return 0
	}

	f := int(int64(d) * int64(c.SampleRate) / int64(time.Second))
	return min(f, c.Frames())
}

// Silence returns a silent clip of length d.
func Silence(rate, channels int, d time.Duration) *Clip {
	n := int(int64(d) * int64(rate) / int64(time.Second))

	return &Clip{
		SampleRate: rate,
		Channels:   channels,
		Data:       make([]float32, n*channels),
	}
}

// ReadAll drains src into a Clip and closes it.
func ReadAll(src Source) (*Clip, error) {
	defer src.Close()

	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	var data []float32
	if n := frames(src); n > 0 {
		data = make([]float32, 0, n*int64(channels))
	}

	bufSize := src.BufSize()
	if bufSize <= 0 {
		bufSize = 4096
	}
	buf := make([]float32, bufSize-bufSize%channels+channels)

	for {
		n, err := src.ReadSamples(buf)
		data = append(data, buf[:n]...)

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			// a source that neither advances nor ends would spin forever
			return nil, fmt.Errorf("read samples: %w", io.ErrNoProgress)
		}
	}

	if len(data) == 0 {
		return nil, ErrEmptyClip
	}

	return &Clip{
		SampleRate: src.SampleRate(),
		Channels:   channels,
		Data:       data[:len(data)-len(data)%channels],
	}, nil
}

// ClipSource replays a Clip once as a Source.
type ClipSource struct {
	clip *Clip
	pos  int
}

func NewClipSource(c *Clip) *ClipSource {
	return &ClipSource{clip: c}
}

func (s *ClipSource) SampleRate() int { return s.clip.SampleRate }
func (s *ClipSource) Channels() int   { return s.clip.Channels }
func (s *ClipSource) BufSize() int    { return 4096 }
func (s *ClipSource) Close() error    { return nil }
func (s *ClipSource) Frames() int64   { return int64(s.clip.Frames()) }

func (s *ClipSource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%s.clip.Channels != 0 {
		return 0, ErrInvalidDstSize
	}

	n := copy(dst, s.clip.Data[s.pos:])
	s.pos += n

	if s.pos >= len(s.clip.Data) {
		return n, io.EOF
	}

	return n, nil
}
