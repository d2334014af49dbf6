// SPDX-License-Identifier: EPL-2.0

package loopmix_test

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ik5/loopmix"
	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/engine"
	"github.com/ik5/loopmix/formats/wav"
	"github.com/ik5/loopmix/internal/audiotest"
	"github.com/ik5/loopmix/looper"
)

// Example_registry lists the formats loopmix decodes out of the box.
func Example_registry() {
	reg := loopmix.NewRegistry()
	fmt.Println(reg.Formats())

	if _, err := reg.ForPath("rain.flac"); err != nil {
		fmt.Println("flac:", err)
	}
	// Output:
	// [aif aiff mp3 oga ogg wav]
	// flac: no decoder registered for format
}

// ExampleRenderMono16 downmixes a stereo source to 16-bit mono.
func ExampleRenderMono16() {
	src := audiotest.NewConstantSource(16000, 2, 16000, 0.5)

	pcm16, err := loopmix.RenderMono16(src, nil, 500*time.Millisecond, 0)
	if err != nil {
		fmt.Println("render:", err)
		return
	}

	fmt.Printf("%d samples, first %d\n", len(pcm16), pcm16[0])
	// Output: 8000 samples, first 16383
}

// ExampleRenderWAV writes a rendered source as a WAV file.
func ExampleRenderWAV() {
	var out bytes.Buffer
	src := audiotest.NewSilentSource(8000, 1, 800)

	if err := loopmix.RenderWAV(&out, src, nil, 0); err != nil {
		fmt.Println("render:", err)
		return
	}

	fmt.Printf("Wrote %d bytes\n", out.Len())
	// Output: Wrote 1644 bytes
}

// Example_loopOffline loops a preloaded clip on the software engine and
// renders it with a mock clock, so the crossfades happen in rendered time.
func Example_loopOffline() {
	ctx := context.Background()
	mock := clock.NewMock()

	loader := engine.NewLoader(loopmix.NewRegistry(), 8000, 1)
	if err := loader.Preload("builtin:hum", audio.Silence(8000, 1, 4*time.Second)); err != nil {
		fmt.Println("preload:", err)
		return
	}

	mixer := engine.NewMixer(loader, mock)
	defer mixer.Close()

	l := looper.New(mixer, "builtin:hum", 0.8, looper.Options{Clock: mock})
	if err := l.Init(ctx); err != nil {
		fmt.Println("init:", err)
		return
	}
	l.Play(ctx)

	pcm16, err := loopmix.RenderMono16(mixer, mock, 10*time.Second, 80)
	if err != nil {
		fmt.Println("render:", err)
		return
	}

	fmt.Printf("rendered %d samples, still playing: %v\n", len(pcm16), l.IsPlaying())
	l.Destroy(ctx)
	// Output: rendered 80000 samples, still playing: true
}

// Example_decode decodes a WAV file and converts it to the engine format.
func Example_decode() {
	var file bytes.Buffer
	if err := wav.WritePCM16(&file, 8000, 1, make([]int16, 800)); err != nil {
		fmt.Println("write:", err)
		return
	}

	dec, err := loopmix.NewRegistry().ForPath("tone.wav")
	if err != nil {
		fmt.Println(err)
		return
	}

	src, err := dec.Decode(&file)
	if err != nil {
		fmt.Println("decode:", err)
		return
	}

	converted, err := audio.Convert(src, 16000, 2)
	if err != nil {
		fmt.Println("convert:", err)
		return
	}

	clip, err := audio.ReadAll(converted)
	if err != nil {
		fmt.Println("read:", err)
		return
	}

	fmt.Printf("%d Hz, %d channels, %v\n", clip.SampleRate, clip.Channels, clip.Duration().Round(10*time.Millisecond))
	// Output: 16000 Hz, 2 channels, 100ms
}
