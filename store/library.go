// SPDX-License-Identifier: EPL-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ik5/loopmix/mix"
)

// Library is a hand-edited YAML file of mixes:
//
//	mixes:
//	  - id: rainy-night
//	    name: Rainy night
//	    files:
//	      - id: rain
//	        locator: rain/heavy.ogg
//	        volume: 0.8
type Library struct {
	Mixes []mix.Mix `yaml:"mixes"`
}

// Mix returns the library mix with id.
func (l Library) Mix(id string) (mix.Mix, bool) {
	for _, m := range l.Mixes {
		if m.ID == id {
			return m, true
		}
	}

	return mix.Mix{}, false
}

func LoadLibrary(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("read library: %w", err)
	}

	lib, err := ParseLibrary(data)
	if err != nil {
		return Library{}, fmt.Errorf("%s: %w", path, err)
	}

	return lib, nil
}

// ParseLibrary decodes a library and checks that mix ids are set and
// unique, and that every file has an id and a locator.
func ParseLibrary(data []byte) (Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return Library{}, fmt.Errorf("parse library: %w", err)
	}

	seen := make(map[string]bool, len(lib.Mixes))
	var errs []error

	for i, m := range lib.Mixes {
		switch {
		case m.ID == "":
			errs = append(errs, fmt.Errorf("mix %d: missing id", i))
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("mix %s: duplicate id", m.ID))
		}
		seen[m.ID] = true

		for j, f := range m.AudioFiles {
			if f.ID == "" || f.Locator == "" {
				errs = append(errs, fmt.Errorf("mix %s: file %d needs an id and a locator", m.ID, j))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Library{}, err
	}

	return lib, nil
}

// Import saves every mix of lib and returns how many were saved.
func (s *Store) Import(ctx context.Context, lib Library) (int, error) {
	for i, m := range lib.Mixes {
		if err := s.SaveMix(ctx, m); err != nil {
			return i, fmt.Errorf("import %s: %w", m.ID, err)
		}
	}

	log.Infow("library imported", "mixes", len(lib.Mixes))

	return len(lib.Mixes), nil
}

// WatchWindow is how long Watch waits for a burst of writes to settle.
const WatchWindow = 100 * time.Millisecond

// Watch calls fn with the reloaded library every time the file at path
// changes, until ctx is done. Editors that replace the file on save are
// handled by watching the parent directory. A library that fails to parse
// is logged and skipped.
func Watch(ctx context.Context, path string, fn func(Library)) error {
	return watch(ctx, path, clock.New(), fn)
}

func watch(ctx context.Context, path string, clk clock.Clock, fn func(Library)) error {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	reload := make(chan struct{}, 1)
	var timer *clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = clk.AfterFunc(WatchWindow, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			lib, err := LoadLibrary(path)
			if err != nil {
				log.Warnw("library reload failed", "path", path, "err", err)
				continue
			}
			log.Infow("library reloaded", "path", path, "mixes", len(lib.Mixes))
			fn(lib)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("library watcher error", "err", err)
		}
	}
}
