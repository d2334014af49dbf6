// SPDX-License-Identifier: EPL-2.0

package looper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/loopmix/utils"
)

var log = logging.Logger("loopmix/looper")

// Looper loops one source forever over two alternating buffers.
type Looper struct {
	source string
	bufs   [2]Buffer
	opts   Options
	clk    clock.Clock

	// ctx lives until Destroy and bounds background work.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	active   int
	fading   bool
	// outgoing is the buffer fading out during a crossfade.
	outgoing Buffer
	volume   float64
	last     action
	lastAt   time.Time
	seq      uint64
	initDone chan struct{}
	initErr  error

	// fadeOutDone is closed when the in-flight PauseWithFade finishes.
	fadeOutDone chan struct{}

	volTimer *clock.Timer
	volGen   uint64
}

// New creates an uninitialized looper for source at volume.
func New(backend Backend, source string, volume float64, opts Options) *Looper {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Looper{
		source: source,
		bufs:   [2]Buffer{backend.NewBuffer(), backend.NewBuffer()},
		opts:   opts,
		clk:    opts.Clock,
		ctx:    ctx,
		cancel: cancel,
		volume: utils.RoundVolume(utils.ClampVolume(volume)),
	}
}

// Source returns the locator the looper plays.
func (l *Looper) Source() string { return l.source }

// State returns the current lifecycle state.
func (l *Looper) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// IsPlaying reports whether playback is logically active.
func (l *Looper) IsPlaying() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.playingLocked()
}

// IsFading reports whether a loop crossfade is running.
func (l *Looper) IsFading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fading
}

// Volume returns the target volume.
func (l *Looper) Volume() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.volume
}

// ActiveBuffer returns the index of the buffer currently in front.
func (l *Looper) ActiveBuffer() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.active
}

// Initialized reports whether both buffers hold the source.
func (l *Looper) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.loaded()
}

func (l *Looper) playingLocked() bool {
	return l.state == StatePlaying || l.state == StateCrossfading
}

func (l *Looper) activeBuffer() Buffer {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.bufs[l.active]
}

// current reports whether seq is still the latest action.
func (l *Looper) current(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seq == seq && l.state != StateDestroyed
}

// Init loads the source into both buffers. Concurrent callers share one
// attempt. A failed Init leaves the looper inert until the next attempt.
func (l *Looper) Init(ctx context.Context) error {
	l.mu.Lock()
	switch {
	case l.state == StateDestroyed:
		l.mu.Unlock()
		return ErrDestroyed
	case l.state.loaded():
		l.mu.Unlock()
		return nil
	case l.state == StateInitializing:
		done := l.initDone
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state.loaded() {
			return nil
		}
		if l.state == StateDestroyed {
			return ErrDestroyed
		}
		return l.initErr
	}

	l.state = StateInitializing
	done := make(chan struct{})
	l.initDone = done
	vol := l.volume
	l.mu.Unlock()

	err := l.load(ctx, vol)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNotInitialized, err)
	}

	l.mu.Lock()
	destroyed := l.state == StateDestroyed
	switch {
	case destroyed:
	case err != nil:
		l.state = StateUninitialized
	default:
		l.state = StateIdle
	}
	l.initErr = err
	l.initDone = nil
	l.mu.Unlock()
	close(done)

	if destroyed {
		if err == nil {
			l.unloadAll(ctx)
		}
		return ErrDestroyed
	}

	if err != nil {
		log.Warnw("init failed", "source", l.source, "err", err)
		return err
	}

	return nil
}

func (l *Looper) load(ctx context.Context, vol float64) error {
	for i, b := range l.bufs {
		if err := b.Load(ctx, l.source); err != nil {
			for _, loaded := range l.bufs[:i] {
				if uerr := loaded.Unload(ctx); uerr != nil {
					log.Debugw("unload after failed init", "source", l.source, "err", uerr)
				}
			}
			return fmt.Errorf("load buffer %d: %w", i, err)
		}
	}

	for i, b := range l.bufs {
		b.SetStatusInterval(l.opts.StatusInterval)
		if err := b.SetVolume(ctx, vol); err != nil {
			l.unloadAll(ctx)
			return fmt.Errorf("set volume on buffer %d: %w", i, err)
		}

		idx := i
		b.OnStatus(func(st Status) { l.handleStatus(idx, st) })
	}

	return nil
}

// begin records a new action unless it repeats the last one inside the
// debounce window. ok is false for a dropped or impossible action.
func (l *Looper) begin(a action) (seq uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateDestroyed {
		return 0, false
	}

	now := l.clk.Now()
	if l.last == a && now.Sub(l.lastAt) < l.opts.ActionDebounce {
		return 0, false
	}

	l.seq++
	l.last = a
	l.lastAt = now

	return l.seq, true
}

// settle moves to state if seq is still the latest action. A running
// crossfade already counts as playing and keeps its state.
func (l *Looper) settle(seq uint64, state State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seq != seq || l.state == StateDestroyed || !l.state.loaded() {
		return
	}
	if state == StatePlaying && l.state == StateCrossfading {
		return
	}

	l.state = state
}

func (l *Looper) fadeOutTask() chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fadeOutDone
}

// waitFadeOut blocks until an in-flight PauseWithFade has wound down.
func (l *Looper) waitFadeOut(ctx context.Context) error {
	done := l.fadeOutTask()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play starts or resumes playback on the active buffer. Errors are logged
// and leave the looper stopped.
func (l *Looper) Play(ctx context.Context) {
	seq, ok := l.begin(actionPlay)
	if !ok {
		return
	}

	if err := l.Init(ctx); err != nil {
		return
	}

	if err := l.play(ctx, seq); err != nil {
		log.Warnw("play failed", "source", l.source, "err", err)
		l.settle(seq, StateIdle)
	}
}

func (l *Looper) play(ctx context.Context, seq uint64) error {
	buf := l.activeBuffer()

	st, err := buf.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if st.Playing {
		// A superseded fade-out leaves the buffer running at a partial volume.
		if err := l.waitFadeOut(ctx); err != nil {
			return err
		}
		if !l.current(seq) {
			return nil
		}
		if !l.IsFading() {
			if err := buf.SetVolume(ctx, l.Volume()); err != nil {
				return fmt.Errorf("set volume: %w", err)
			}
		}

		l.settle(seq, StatePlaying)
		return nil
	}

	if st.AtEnd() {
		if err := buf.SetPosition(ctx, 0); err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
	}

	if err := l.waitFadeOut(ctx); err != nil {
		return err
	}
	if !l.current(seq) {
		return nil
	}

	if err := buf.SetVolume(ctx, l.Volume()); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	if err := buf.Play(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	l.settle(seq, StatePlaying)
	return nil
}

// Pause stops the active buffer at once.
func (l *Looper) Pause(ctx context.Context) {
	l.pause(ctx, false)
}

// PauseWithFade ramps the active buffer to silence before pausing it. It
// returns when the fade is done or has been superseded by a newer action.
func (l *Looper) PauseWithFade(ctx context.Context) {
	l.pause(ctx, true)
}

func (l *Looper) pause(ctx context.Context, fade bool) {
	seq, ok := l.begin(actionPause)
	if !ok {
		return
	}

	if !l.Initialized() {
		return
	}

	buf := l.activeBuffer()
	st, err := buf.Status(ctx)
	if err != nil || !st.Playing {
		if err != nil {
			log.Debugw("status before pause", "source", l.source, "err", err)
		}
		l.settle(seq, StateIdle)
		return
	}

	if !fade {
		l.settle(seq, StateIdle)
		if err := buf.SetVolume(ctx, 0); err != nil {
			log.Warnw("mute before pause", "source", l.source, "err", err)
		}
		if err := buf.Pause(ctx); err != nil {
			log.Warnw("pause failed", "source", l.source, "err", err)
		}
		l.stopOutgoing(ctx)
		return
	}

	l.mu.Lock()
	if l.seq != seq || l.state == StateDestroyed {
		l.mu.Unlock()
		return
	}
	l.state = StateFadingOut
	done := make(chan struct{})
	l.fadeOutDone = done
	from := l.volume
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.fadeOutDone == done {
			l.fadeOutDone = nil
		}
		if l.seq == seq && l.state == StateFadingOut {
			l.state = StateIdle
		}
		l.mu.Unlock()
		close(done)
	}()

	keep := func() bool { return l.current(seq) }
	completed, err := l.opts.Ramper.Run(ctx, buf, Ramp{
		From:     from,
		To:       0,
		Steps:    l.opts.FadeOutSteps,
		Duration: l.opts.FadeDuration,
		Keep:     keep,
	})
	if err != nil {
		log.Warnw("fade out failed", "source", l.source, "err", err)
		return
	}

	if completed && keep() {
		if err := buf.Pause(ctx); err != nil {
			log.Warnw("pause after fade failed", "source", l.source, "err", err)
		}
	}
}

// stopOutgoing silences the buffer a crossfade is fading out, if any.
func (l *Looper) stopOutgoing(ctx context.Context) {
	l.mu.Lock()
	out := l.outgoing
	l.mu.Unlock()

	if out == nil {
		return
	}

	if err := out.SetVolume(ctx, 0); err != nil {
		log.Warnw("mute outgoing", "source", l.source, "err", err)
	}
	if err := out.Stop(ctx); err != nil {
		log.Warnw("stop outgoing", "source", l.source, "err", err)
	}
}

// SetVolume sets the target volume, clamped to [0,1] and rounded to one
// decimal. The buffers pick it up after VolumeDebounce.
func (l *Looper) SetVolume(v float64) {
	v = utils.RoundVolume(utils.ClampVolume(v))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateDestroyed {
		return
	}

	l.volume = v
	l.volGen++
	gen := l.volGen

	if l.volTimer != nil {
		l.volTimer.Stop()
	}
	l.volTimer = l.clk.AfterFunc(l.opts.VolumeDebounce, func() { l.applyVolume(gen) })
}

func (l *Looper) applyVolume(gen uint64) {
	l.mu.Lock()
	if gen != l.volGen {
		l.mu.Unlock()
		return
	}
	l.volTimer = nil
	// the crossfade or fade-out owns the buffer volumes
	if l.fading || l.state == StateFadingOut || !l.state.loaded() {
		l.mu.Unlock()
		return
	}
	v := l.volume
	active := l.bufs[l.active]
	l.mu.Unlock()

	st, err := active.Status(l.ctx)
	if err != nil || !st.Loaded {
		return
	}

	var g errgroup.Group
	for _, b := range l.bufs {
		g.Go(func() error { return b.SetVolume(l.ctx, v) })
	}
	if err := g.Wait(); err != nil {
		log.Warnw("apply volume", "source", l.source, "volume", v, "err", err)
	}
}

// handleStatus starts a crossfade when the active buffer nears its end.
func (l *Looper) handleStatus(idx int, st Status) {
	l.mu.Lock()

	window := min(l.opts.FadeDuration, st.Duration/2)
	if idx != l.active || l.state != StatePlaying || l.fading ||
		st.Duration <= 0 || st.Position <= st.Duration-window {
		l.mu.Unlock()
		return
	}

	l.fading = true
	l.state = StateCrossfading
	out, in := l.bufs[idx], l.bufs[1-idx]
	l.outgoing = out
	l.active = 1 - idx
	vol := l.volume
	l.mu.Unlock()

	log.Debugw("crossfade", "source", l.source, "from", idx, "to", 1-idx)

	go l.crossfade(out, in, vol, window)
}

func (l *Looper) crossfade(out, in Buffer, vol float64, window time.Duration) {
	defer func() {
		l.mu.Lock()
		l.fading = false
		l.outgoing = nil
		if l.state == StateCrossfading {
			l.state = StatePlaying
		}
		l.mu.Unlock()
	}()

	ctx := l.ctx
	alive := func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()

		return l.state == StateCrossfading
	}
	// the outgoing buffer also finishes its fade under a fade-out pause
	fadingOut := func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()

		return l.state == StateCrossfading || l.state == StateFadingOut
	}

	var g errgroup.Group

	g.Go(func() error {
		_, err := l.opts.Ramper.Run(ctx, out, Ramp{
			From:     vol,
			To:       0,
			Steps:    l.opts.CrossfadeSteps,
			Duration: window,
			Keep:     fadingOut,
		})
		if serr := out.Stop(ctx); serr != nil {
			err = errors.Join(err, fmt.Errorf("stop outgoing: %w", serr))
		}
		return err
	})

	g.Go(func() error {
		if err := in.SetVolume(ctx, 0); err != nil {
			return fmt.Errorf("silence incoming: %w", err)
		}
		if err := in.SetPosition(ctx, 0); err != nil {
			return fmt.Errorf("rewind incoming: %w", err)
		}
		if err := in.Play(ctx); err != nil {
			return fmt.Errorf("start incoming: %w", err)
		}

		_, err := l.opts.Ramper.Run(ctx, in, Ramp{
			From:     0,
			To:       vol,
			Steps:    l.opts.CrossfadeSteps,
			Duration: window,
			Keep:     alive,
		})
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warnw("crossfade failed", "source", l.source, "err", err)
	}
}

// Destroy unloads both buffers. The looper cannot be used afterwards.
func (l *Looper) Destroy(ctx context.Context) {
	l.mu.Lock()
	if l.state == StateDestroyed {
		l.mu.Unlock()
		log.Debugw("destroy on destroyed looper", "source", l.source)
		return
	}

	prev := l.state
	l.state = StateDestroyed
	l.seq++
	l.volGen++
	if l.volTimer != nil {
		l.volTimer.Stop()
		l.volTimer = nil
	}
	l.mu.Unlock()

	l.cancel()

	// Init unloads on its own once it sees the destroyed state.
	if prev == StateUninitialized || prev == StateInitializing {
		return
	}

	l.unloadAll(ctx)
}

func (l *Looper) unloadAll(ctx context.Context) {
	for i, b := range l.bufs {
		if err := b.Unload(ctx); err != nil {
			log.Warnw("unload failed", "source", l.source, "buffer", i, "err", err)
		}
	}
}
