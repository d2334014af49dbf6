// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "LOOPMIX_"

// ApplyEnv overrides fields from LOOPMIX_* variables. Unset variables leave
// the field alone; a value that does not parse is an error.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	parse := func(name string, set func(string) error) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		if err := set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}
	dur := func(dst *time.Duration) func(string) error {
		return func(v string) (err error) {
			*dst, err = time.ParseDuration(v)
			return err
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.ParseBool(v)
			return err
		}
	}

	parse("SAMPLE_RATE", func(v string) (err error) {
		c.Engine.SampleRate, err = strconv.Atoi(v)
		return err
	})
	parse("MONO", boolean(&c.Engine.Mono))
	parse("BUFFER", dur(&c.Engine.Buffer))

	parse("FADE_DURATION", dur(&c.Looper.FadeDuration))
	parse("ATOMIC_FADES", boolean(&c.Looper.AtomicFades))

	str("KEEP_ALIVE_SOURCE", &c.KeepAlive.Source)
	parse("KEEP_ALIVE_VOLUME", func(v string) (err error) {
		c.KeepAlive.Volume, err = strconv.ParseFloat(v, 64)
		return err
	})

	str("CACHE_DIR", &c.Cache.Dir)
	str("BASE_URL", &c.Cache.BaseURL)
	parse("CACHE_MAX_AGE", dur(&c.Cache.MaxAge))

	str("STORE", &c.Store.Path)
	str("LIBRARY", &c.Library.Path)
	parse("WATCH", boolean(&c.Library.Watch))

	str("LOG_LEVEL", &c.Log.Level)
	str("TITLE", &c.Title)

	return errors.Join(errs...)
}
