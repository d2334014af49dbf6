// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/looper"
	"github.com/ik5/loopmix/utils"
)

const defaultStatusInterval = 500 * time.Millisecond

// Voice is one playback handle inside a Mixer. It implements looper.Buffer.
type Voice struct {
	mixer *Mixer

	mu       sync.Mutex
	locator  string
	clip     *audio.Clip
	pos      int
	playing  bool
	gain     float64
	target   float64
	interval time.Duration
	onStatus func(looper.Status)
	stop     chan struct{}
}

var _ looper.Buffer = (*Voice)(nil)

func newVoice(m *Mixer) *Voice {
	return &Voice{
		mixer:    m,
		gain:     1,
		target:   1,
		interval: defaultStatusInterval,
	}
}

func (v *Voice) Load(ctx context.Context, locator string) error {
	v.mu.Lock()
	loaded := v.clip != nil
	v.mu.Unlock()

	if loaded {
		return ErrAlreadyLoaded
	}

	clip, err := v.mixer.loader.Acquire(ctx, locator)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.clip != nil {
		v.mu.Unlock()
		v.mixer.loader.Release(locator)
		return ErrAlreadyLoaded
	}
	v.locator = locator
	v.clip = clip
	v.pos = 0
	v.playing = false
	v.stop = make(chan struct{})
	stop := v.stop
	v.mu.Unlock()

	if err := v.mixer.attach(v); err != nil {
		v.release()
		return err
	}

	go v.report(stop)

	return nil
}

func (v *Voice) Play(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clip == nil {
		return ErrNotLoaded
	}

	// a finished voice stays finished until it is rewound
	if v.pos < v.clip.Frames() {
		v.playing = true
	}

	return nil
}

func (v *Voice) Pause(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clip == nil {
		return ErrNotLoaded
	}

	v.playing = false

	return nil
}

func (v *Voice) Stop(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clip == nil {
		return ErrNotLoaded
	}

	v.playing = false
	v.pos = 0

	return nil
}

// SetVolume sets the gain. A playing voice glides to it over the next
// read block.
func (v *Voice) SetVolume(_ context.Context, vol float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clip == nil {
		return ErrNotLoaded
	}

	v.target = utils.ClampVolume(vol)
	if !v.playing {
		v.gain = v.target
	}

	return nil
}

func (v *Voice) SetPosition(_ context.Context, d time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clip == nil {
		return ErrNotLoaded
	}

	v.pos = v.clip.FrameAt(d)

	return nil
}

func (v *Voice) Status(context.Context) (looper.Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.statusLocked(), nil
}

func (v *Voice) statusLocked() looper.Status {
	if v.clip == nil {
		return looper.Status{}
	}

	return looper.Status{
		Loaded:   true,
		Playing:  v.playing,
		Position: v.clip.PositionOf(v.pos),
		Duration: v.clip.Duration(),
	}
}

func (v *Voice) SetStatusInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.interval = d
}

func (v *Voice) OnStatus(fn func(looper.Status)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.onStatus = fn
}

func (v *Voice) Unload(context.Context) error {
	if !v.release() {
		return ErrNotLoaded
	}

	v.mixer.detach(v)

	return nil
}

// Volume returns the gain the voice is heading to.
func (v *Voice) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.target
}

func (v *Voice) Locator() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.locator
}

func (v *Voice) release() bool {
	v.mu.Lock()
	if v.clip == nil {
		v.mu.Unlock()
		return false
	}

	locator := v.locator
	close(v.stop)
	v.stop = nil
	v.clip = nil
	v.playing = false
	v.pos = 0
	v.mu.Unlock()

	v.mixer.loader.Release(locator)

	return true
}

// report delivers status updates while the voice is playing.
func (v *Voice) report(stop <-chan struct{}) {
	clk := v.mixer.clk

	for {
		v.mu.Lock()
		interval := v.interval
		v.mu.Unlock()

		t := clk.Timer(interval)
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
		}

		v.mu.Lock()
		st := v.statusLocked()
		fn := v.onStatus
		v.mu.Unlock()

		if st.Playing && fn != nil {
			fn(st)
		}
	}
}

// mix adds this voice's next frames into dst.
func (v *Voice) mix(dst []float32, channels int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.playing || v.clip == nil {
		return
	}

	frames := len(dst) / channels
	total := v.clip.Frames()
	from, to := v.gain, v.target

	for f := 0; f < frames && v.pos < total; f++ {
		g := float32(from + (to-from)*float64(f+1)/float64(frames))
		src := v.clip.Data[v.pos*channels : (v.pos+1)*channels]
		for c, s := range src {
			dst[f*channels+c] += s * g
		}
		v.pos++
	}

	v.gain = to
	if v.pos >= total {
		v.playing = false
	}
}
