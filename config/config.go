// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"gopkg.in/yaml.v3"

	"github.com/ik5/loopmix/cache"
	"github.com/ik5/loopmix/looper"
	"github.com/ik5/loopmix/manager"
)

type Config struct {
	Engine    Engine    `yaml:"engine"`
	Looper    Looper    `yaml:"looper"`
	KeepAlive KeepAlive `yaml:"keep_alive"`
	Cache     Cache     `yaml:"cache"`
	Store     Store     `yaml:"store"`
	Library   Library   `yaml:"library"`
	Log       Log       `yaml:"log"`
	// Title is shown by the session while no mix is loaded.
	Title string `yaml:"title"`
}

type Engine struct {
	SampleRate int  `yaml:"sample_rate"`
	Mono       bool `yaml:"mono"`
	// Buffer is the speaker latency.
	Buffer time.Duration `yaml:"buffer"`
}

type Looper struct {
	FadeDuration   time.Duration `yaml:"fade_duration"`
	FadeOutSteps   int           `yaml:"fade_out_steps"`
	CrossfadeSteps int           `yaml:"crossfade_steps"`
	ActionDebounce time.Duration `yaml:"action_debounce"`
	VolumeDebounce time.Duration `yaml:"volume_debounce"`
	StatusInterval time.Duration `yaml:"status_interval"`
	// AtomicFades replaces stepped fades with a single volume change.
	AtomicFades bool `yaml:"atomic_fades"`
}

type KeepAlive struct {
	Source string  `yaml:"source"`
	Volume float64 `yaml:"volume"`
}

type Cache struct {
	Dir     string        `yaml:"dir"`
	BaseURL string        `yaml:"base_url"`
	MaxAge  time.Duration `yaml:"max_age"`
}

type Store struct {
	Path string `yaml:"path"`
}

// Library points at an optional YAML mix library.
type Library struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type Log struct {
	Level string `yaml:"level"`
}

func Default() Config {
	lo := looper.DefaultOptions()

	return Config{
		Engine: Engine{
			SampleRate: 48000,
			Buffer:     100 * time.Millisecond,
		},
		Looper: Looper{
			FadeDuration:   lo.FadeDuration,
			FadeOutSteps:   lo.FadeOutSteps,
			CrossfadeSteps: lo.CrossfadeSteps,
			ActionDebounce: lo.ActionDebounce,
			VolumeDebounce: lo.VolumeDebounce,
			StatusInterval: lo.StatusInterval,
		},
		KeepAlive: KeepAlive{
			Source: manager.DefaultKeepAliveSource,
		},
		Cache: Cache{
			Dir:    filepath.Join(baseDir(os.UserCacheDir), "loopmix"),
			MaxAge: cache.DefaultMaxAge,
		},
		Store: Store{
			Path: filepath.Join(baseDir(os.UserConfigDir), "loopmix", "mixes.db"),
		},
		Log:   Log{Level: "warn"},
		Title: manager.DefaultTitle,
	}
}

func baseDir(fn func() (string, error)) string {
	dir, err := fn()
	if err != nil {
		return os.TempDir()
	}

	return dir
}

// Load reads the YAML file at path over the defaults, then applies the
// environment and validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Engine.SampleRate >= 8000 && c.Engine.SampleRate <= 192000, "engine.sample_rate must be 8000..192000")
	check(c.Engine.Buffer > 0, "engine.buffer must be positive")

	check(c.Looper.FadeDuration > 0, "looper.fade_duration must be positive")
	check(c.Looper.FadeOutSteps > 0, "looper.fade_out_steps must be positive")
	check(c.Looper.CrossfadeSteps > 0, "looper.crossfade_steps must be positive")
	check(c.Looper.ActionDebounce > 0, "looper.action_debounce must be positive")
	check(c.Looper.VolumeDebounce > 0, "looper.volume_debounce must be positive")
	check(c.Looper.StatusInterval > 0, "looper.status_interval must be positive")

	check(strings.TrimSpace(c.KeepAlive.Source) != "", "keep_alive.source is required")
	check(c.KeepAlive.Volume >= 0 && c.KeepAlive.Volume <= 1, "keep_alive.volume must be 0..1")

	check(strings.TrimSpace(c.Cache.Dir) != "", "cache.dir is required")
	check(c.Cache.MaxAge > 0, "cache.max_age must be positive")
	check(strings.TrimSpace(c.Store.Path) != "", "store.path is required")
	check(!c.Library.Watch || c.Library.Path != "", "library.watch needs library.path")

	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// LooperOptions converts the looper section. clk may be nil for the wall
// clock.
func (c *Config) LooperOptions(clk clock.Clock) looper.Options {
	opts := looper.Options{
		ActionDebounce: c.Looper.ActionDebounce,
		VolumeDebounce: c.Looper.VolumeDebounce,
		FadeDuration:   c.Looper.FadeDuration,
		CrossfadeSteps: c.Looper.CrossfadeSteps,
		FadeOutSteps:   c.Looper.FadeOutSteps,
		StatusInterval: c.Looper.StatusInterval,
		Clock:          clk,
	}
	if c.Looper.AtomicFades {
		opts.Ramper = looper.AtomicRamper{}
	}

	return opts
}

// Channels is the engine channel count.
func (c *Config) Channels() int {
	if c.Engine.Mono {
		return 1
	}

	return 2
}

// SetupLogging applies the configured level to every logger.
func (c *Config) SetupLogging() error {
	lvl, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	logging.SetAllLoggers(lvl)

	return nil
}
