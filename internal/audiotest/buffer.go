// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ik5/loopmix/looper"
)

var ErrNotLoaded = errors.New("fake buffer not loaded")

// FakeBuffer is a scriptable looper.Buffer. It never advances on its own;
// tests move the playhead with Emit.
type FakeBuffer struct {
	mu sync.Mutex

	duration time.Duration
	source   string
	loaded   bool
	playing  bool
	position time.Duration
	volume   float64
	volumes  []float64
	calls    []string
	interval time.Duration
	onStatus func(looper.Status)

	LoadErr   error
	PlayErr   error
	StatusErr error
}

func NewFakeBuffer(duration time.Duration) *FakeBuffer {
	return &FakeBuffer{duration: duration, volume: 1}
}

func (b *FakeBuffer) record(call string) {
	b.calls = append(b.calls, call)
}

func (b *FakeBuffer) Load(_ context.Context, source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("load")
	if b.LoadErr != nil {
		return b.LoadErr
	}

	b.source = source
	b.loaded = true

	return nil
}

func (b *FakeBuffer) Play(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("play")
	if !b.loaded {
		return ErrNotLoaded
	}
	if b.PlayErr != nil {
		return b.PlayErr
	}

	b.playing = true

	return nil
}

func (b *FakeBuffer) Pause(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("pause")
	if !b.loaded {
		return ErrNotLoaded
	}

	b.playing = false

	return nil
}

func (b *FakeBuffer) Stop(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("stop")
	if !b.loaded {
		return ErrNotLoaded
	}

	b.playing = false
	b.position = 0

	return nil
}

func (b *FakeBuffer) SetVolume(_ context.Context, v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.loaded {
		return ErrNotLoaded
	}

	b.volume = v
	b.volumes = append(b.volumes, v)

	return nil
}

func (b *FakeBuffer) SetPosition(_ context.Context, d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("seek")
	if !b.loaded {
		return ErrNotLoaded
	}

	b.position = d

	return nil
}

func (b *FakeBuffer) Status(context.Context) (looper.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.StatusErr != nil {
		return looper.Status{}, b.StatusErr
	}

	return b.statusLocked(), nil
}

func (b *FakeBuffer) statusLocked() looper.Status {
	return looper.Status{
		Loaded:   b.loaded,
		Playing:  b.playing,
		Position: b.position,
		Duration: b.duration,
	}
}

func (b *FakeBuffer) SetStatusInterval(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.interval = d
}

func (b *FakeBuffer) OnStatus(fn func(looper.Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onStatus = fn
}

func (b *FakeBuffer) Unload(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("unload")
	if !b.loaded {
		return ErrNotLoaded
	}

	b.loaded = false
	b.playing = false

	return nil
}

// Emit moves the playhead to pos and delivers a status update.
func (b *FakeBuffer) Emit(pos time.Duration) {
	b.mu.Lock()
	b.position = pos
	st := b.statusLocked()
	fn := b.onStatus
	b.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// SetPlaying forces the playing flag, as if the engine changed it.
func (b *FakeBuffer) SetPlaying(p bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.playing = p
}

func (b *FakeBuffer) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.playing
}

func (b *FakeBuffer) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.loaded
}

func (b *FakeBuffer) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.source
}

func (b *FakeBuffer) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.volume
}

// Volumes returns every volume set so far, in order.
func (b *FakeBuffer) Volumes() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.volumes)
}

func (b *FakeBuffer) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.calls)
}

// Count returns how often call was made.
func (b *FakeBuffer) Count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}

	return n
}

func (b *FakeBuffer) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.interval
}

// FakeBackend hands out FakeBuffers and keeps them for inspection.
type FakeBackend struct {
	mu sync.Mutex

	Duration time.Duration
	// LoadErr is copied into every new buffer.
	LoadErr error
	buffers []*FakeBuffer
}

func (f *FakeBackend) NewBuffer() looper.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := NewFakeBuffer(f.Duration)
	b.LoadErr = f.LoadErr
	f.buffers = append(f.buffers, b)

	return b
}

func (f *FakeBackend) Buffers() []*FakeBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.buffers)
}

// BySource returns the buffers loaded with source.
func (f *FakeBackend) BySource(source string) []*FakeBuffer {
	var out []*FakeBuffer
	for _, b := range f.Buffers() {
		if b.Source() == source {
			out = append(out, b)
		}
	}

	return out
}
