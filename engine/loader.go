// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ik5/loopmix/audio"
)

var log = logging.Logger("loopmix/engine")

const (
	// BuiltinPrefix marks locators served from memory.
	BuiltinPrefix = "builtin:"
	// Silence is a one second silent clip.
	Silence = BuiltinPrefix + "silence"
)

type clipEntry struct {
	clip *audio.Clip
	refs int
}

// Loader decodes locators into clips at one sample rate and channel count.
// Decoded clips are reference counted and shared.
type Loader struct {
	registry   *audio.Registry
	sampleRate int
	channels   int

	group singleflight.Group

	mu       sync.Mutex
	clips    map[string]*clipEntry
	builtins map[string]*audio.Clip
}

func NewLoader(registry *audio.Registry, sampleRate, channels int) *Loader {
	l := &Loader{
		registry:   registry,
		sampleRate: sampleRate,
		channels:   channels,
		clips:      make(map[string]*clipEntry),
		builtins:   make(map[string]*audio.Clip),
	}
	l.builtins[Silence] = audio.Silence(sampleRate, channels, time.Second)

	return l
}

func (l *Loader) SampleRate() int { return l.sampleRate }
func (l *Loader) Channels() int   { return l.channels }

// Preload registers clip under a builtin locator, converting it to the
// loader's format when needed.
func (l *Loader) Preload(locator string, clip *audio.Clip) error {
	if !strings.HasPrefix(locator, BuiltinPrefix) {
		return fmt.Errorf("%w: %q lacks the %q prefix", ErrUnknownBuiltin, locator, BuiltinPrefix)
	}

	if clip.SampleRate != l.sampleRate || clip.Channels != l.channels {
		src, err := audio.Convert(audio.NewClipSource(clip), l.sampleRate, l.channels)
		if err != nil {
			return fmt.Errorf("convert %s: %w", locator, err)
		}
		if clip, err = audio.ReadAll(src); err != nil {
			return fmt.Errorf("convert %s: %w", locator, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.builtins[locator] = clip

	return nil
}

// Acquire returns the decoded clip for locator. Every successful Acquire
// must be paired with a Release.
func (l *Loader) Acquire(ctx context.Context, locator string) (*audio.Clip, error) {
	if clip, ok := l.retain(locator); ok {
		return clip, nil
	}

	v, err, _ := l.group.Do(locator, func() (any, error) {
		return l.decode(ctx, locator)
	})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.clips[locator]; ok {
		e.refs++
		return e.clip, nil
	}

	clip := v.(*audio.Clip)
	l.clips[locator] = &clipEntry{clip: clip, refs: 1}

	return clip, nil
}

func (l *Loader) retain(locator string) (*audio.Clip, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clips[locator]
	if !ok {
		return nil, false
	}
	e.refs++

	return e.clip, true
}

// Release drops one reference. The clip is freed with the last one.
func (l *Loader) Release(locator string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clips[locator]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(l.clips, locator)
		log.Debugw("clip released", "locator", locator)
	}
}

// Cached returns how many clips are held.
func (l *Loader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clips)
}

func (l *Loader) decode(ctx context.Context, locator string) (*audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.HasPrefix(locator, BuiltinPrefix) {
		l.mu.Lock()
		clip, ok := l.builtins[locator]
		l.mu.Unlock()

		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBuiltin, locator)
		}
		return clip, nil
	}

	dec, err := l.registry.ForPath(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, locator, err)
	}

	f, err := os.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", locator, err)
	}

	conv, err := audio.Convert(src, l.sampleRate, l.channels)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("convert %s: %w", locator, err)
	}

	clip, err := audio.ReadAll(conv)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}

	log.Debugw("clip decoded", "locator", locator, "duration", clip.Duration())

	return clip, nil
}
