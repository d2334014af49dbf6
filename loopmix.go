// SPDX-License-Identifier: EPL-2.0

package loopmix

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ik5/loopmix/audio"
	"github.com/ik5/loopmix/cache"
	"github.com/ik5/loopmix/config"
	"github.com/ik5/loopmix/engine"
	"github.com/ik5/loopmix/formats/aiff"
	"github.com/ik5/loopmix/formats/mp3"
	"github.com/ik5/loopmix/formats/vorbis"
	"github.com/ik5/loopmix/formats/wav"
	"github.com/ik5/loopmix/manager"
	"github.com/ik5/loopmix/playback"
	"github.com/ik5/loopmix/store"
)

var log = logging.Logger("loopmix")

// NewRegistry returns a registry with every bundled decoder.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})

	return reg
}

type options struct {
	clock   clock.Clock
	fetcher cache.Fetcher
	session manager.SessionHook
}

type Option func(*options)

// WithClock runs every timer of the system on clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithFetcher replaces the HTTP downloader of the cache.
func WithFetcher(f cache.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithSession sets the hook that shows the loaded mix to the platform.
func WithSession(s manager.SessionHook) Option {
	return func(o *options) { o.session = s }
}

// System is a fully wired loop player. Mixer is the audio output; play it
// on a speaker or render it offline.
type System struct {
	Config     config.Config
	Loader     *engine.Loader
	Mixer      *engine.Mixer
	Cache      *cache.Dir
	Store      *store.Store
	Manager    *manager.Manager
	State      *playback.State
	Controller *playback.Controller
}

// Open wires a System from cfg.
func Open(cfg config.Config, opts ...Option) (*System, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	dir, err := cache.New(cfg.Cache.Dir, cache.Options{
		BaseURL: cfg.Cache.BaseURL,
		Fetcher: o.fetcher,
		Clock:   o.clock,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	loader := engine.NewLoader(NewRegistry(), cfg.Engine.SampleRate, cfg.Channels())
	mixer := engine.NewMixer(loader, o.clock)

	mgr, err := manager.New(manager.Options{
		Backend:         mixer,
		Resolver:        dir,
		Session:         o.session,
		Looper:          cfg.LooperOptions(o.clock),
		KeepAliveSource: cfg.KeepAlive.Source,
		KeepAliveVolume: cfg.KeepAlive.Volume,
		Title:           cfg.Title,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	state := playback.NewState()
	ctl := playback.NewController(mgr, state, st, dir)
	ctl.Attach()

	log.Infow("system open",
		"rate", cfg.Engine.SampleRate, "channels", cfg.Channels(),
		"cache", cfg.Cache.Dir, "store", cfg.Store.Path)

	return &System{
		Config:     cfg,
		Loader:     loader,
		Mixer:      mixer,
		Cache:      dir,
		Store:      st,
		Manager:    mgr,
		State:      state,
		Controller: ctl,
	}, nil
}

// CleanupCache removes cached files older than the configured max age.
func (s *System) CleanupCache() (int, error) {
	return s.Cache.Cleanup(s.Config.Cache.MaxAge)
}

// Close unloads the mix and releases the mixer and the store.
func (s *System) Close(ctx context.Context) error {
	s.Controller.ClearNowPlayingMix(ctx)

	return errors.Join(s.Mixer.Close(), s.Store.Close())
}
