// SPDX-License-Identifier: EPL-2.0

package loopmix

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/formats/wav"
	"github.com/ik5/loopmix/utils"
)

// DefaultChunk is the number of frames RenderMono16 pulls per step. A
// chunk must stay shorter than one fade step for offline fades to keep pace
// with the audio.
const DefaultChunk = 256

// RenderMono16 pulls d of audio from src, downmixes it to mono and returns
// it as 16-bit PCM at the source rate.
//
// When clk is set it is advanced by the length of every chunk right after
// the chunk is read, so anything timed on clk (fades, crossfades, status
// reports) happens at the matching point of the rendered audio. A zero d
// reads until src ends, which never happens for a live mixer.
func RenderMono16(src audio.Source, clk *clock.Mock, d time.Duration, chunk int) ([]int16, error) {
	if chunk <= 0 {
		chunk = DefaultChunk
	}

	rate := src.SampleRate()
	mono := audio.NewMonoMixer(src)

	want := -1
	estimate := rate * 2
	if d > 0 {
		want = int(int64(rate) * int64(d) / int64(time.Second))
		estimate = want
	}

	pcm16 := make([]int16, 0, estimate)
	buf := make([]float32, chunk)

	for want < 0 || len(pcm16) < want {
		n := chunk
		if want >= 0 {
			n = min(n, want-len(pcm16))
		}

		got, err := mono.ReadSamples(buf[:n])
		for _, x := range buf[:got] {
			pcm16 = append(pcm16, utils.Float32ToInt16(x))
		}

		if clk != nil && got > 0 {
			clk.Add(time.Duration(got) * time.Second / time.Duration(rate))
		}

		if errors.Is(err, io.EOF) || (got == 0 && err == nil) {
			break
		}
		if err != nil {
			return pcm16, fmt.Errorf("render: %w", err)
		}
	}

	return pcm16, nil
}

// RenderWAV renders like RenderMono16 and writes the result to w as a mono
// 16-bit WAV file.
func RenderWAV(w io.Writer, src audio.Source, clk *clock.Mock, d time.Duration) error {
	pcm16, err := RenderMono16(src, clk, d, DefaultChunk)
	if err != nil {
		return err
	}

	return wav.WritePCM16(w, src.SampleRate(), 1, pcm16)
}
