// SPDX-License-Identifier: EPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ik5/loopmix/engine"
	"github.com/ik5/loopmix/mix"
)

var log = logging.Logger("loopmix/cache")

// DefaultMaxAge is how long Cleanup keeps a file by default.
const DefaultMaxAge = 7 * 24 * time.Hour

const tempPattern = ".download-*"

type Options struct {
	// BaseURL is prepended to locators that are not absolute URLs.
	BaseURL string
	Fetcher Fetcher
	Clock   clock.Clock
}

// Dir is a flat directory of downloaded audio files, named after the last
// element of their locator.
type Dir struct {
	root    string
	baseURL string
	fetcher Fetcher
	clk     clock.Clock

	group singleflight.Group
}

// New opens the cache at root, creating it when needed.
func New(root string, opts Options) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	if opts.Fetcher == nil {
		opts.Fetcher = HTTPFetcher{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Dir{
		root:    root,
		baseURL: opts.BaseURL,
		fetcher: opts.Fetcher,
		clk:     opts.Clock,
	}, nil
}

func (d *Dir) Root() string { return d.root }

// passthrough reports whether locator is played where it is.
func passthrough(locator string) bool {
	return strings.HasPrefix(locator, engine.BuiltinPrefix) || filepath.IsAbs(locator)
}

// Path returns where f is, or would be, cached.
func (d *Dir) Path(f mix.AudioFile) (string, error) {
	if f.Locator == "" {
		return "", fmt.Errorf("%w: %s", ErrNoLocator, f.ID)
	}

	p := f.Locator
	if u, err := url.Parse(f.Locator); err == nil && u.Scheme != "" {
		p = u.Path
	}

	name := path.Base(p)
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %s: cannot name %q", ErrNoLocator, f.ID, f.Locator)
	}

	return filepath.Join(d.root, name), nil
}

func (d *Dir) url(locator string) string {
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		return locator
	}

	return strings.TrimSuffix(d.baseURL, "/") + "/" + strings.TrimPrefix(locator, "/")
}

// Contains reports whether f can be played without a download.
func (d *Dir) Contains(f mix.AudioFile) bool {
	if strings.HasPrefix(f.Locator, engine.BuiltinPrefix) {
		return true
	}
	if filepath.IsAbs(f.Locator) {
		return exists(f.Locator)
	}

	p, err := d.Path(f)
	if err != nil {
		return false
	}

	return exists(p)
}

func exists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// Resolve returns a local locator for f, downloading it first when it is
// not cached. Concurrent calls for one file share a single download.
func (d *Dir) Resolve(ctx context.Context, f mix.AudioFile) (string, error) {
	if passthrough(f.Locator) {
		return f.Locator, nil
	}

	p, err := d.Path(f)
	if err != nil {
		return "", err
	}
	if exists(p) {
		log.Debugw("cache hit", "file", f.ID, "path", p)
		return p, nil
	}

	ch := d.group.DoChan(p, func() (any, error) {
		// an earlier flight may have finished since the check above
		if exists(p) {
			return p, nil
		}
		return p, d.download(ctx, f.Locator, p)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return p, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Dir) download(ctx context.Context, locator, dst string) error {
	src := d.url(locator)
	log.Infow("downloading", "url", src, "path", dst)

	tmp, err := os.CreateTemp(d.root, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	err = d.fetcher.Fetch(ctx, src, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close temp file: %w", cerr)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		if rerr := os.Remove(tmp.Name()); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			log.Warnw("remove partial download", "path", tmp.Name(), "err", rerr)
		}
		log.Errorw("download failed", "url", src, "err", err)
		return fmt.Errorf("download %s: %w", locator, err)
	}

	return nil
}

// ResolveAll makes every file of files local, downloading the missing ones
// at once. onStart and onEnd bracket each real download. Files without a
// locator are logged and skipped. The first failure cancels the rest.
func (d *Dir) ResolveAll(ctx context.Context, files []mix.AudioFile, onStart, onEnd func(id string)) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, f := range files {
		if f.Locator == "" {
			log.Errorw("no locator for file", "file", f.ID)
			continue
		}
		if d.Contains(f) {
			continue
		}

		g.Go(func() error {
			if onStart != nil {
				onStart(f.ID)
			}
			if onEnd != nil {
				defer onEnd(f.ID)
			}

			_, err := d.Resolve(gctx, f)
			return err
		})
	}

	return g.Wait()
}

// Cleanup deletes cached files older than maxAge and returns how many it
// removed. A file it cannot inspect or remove is logged and kept.
func (d *Dir) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0, fmt.Errorf("list cache dir: %w", err)
	}

	now := d.clk.Now()
	removed := 0

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		info, err := e.Info()
		if err != nil {
			log.Warnw("stat cached file", "name", e.Name(), "err", err)
			continue
		}

		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		if err := os.Remove(filepath.Join(d.root, e.Name())); err != nil {
			log.Warnw("remove cached file", "name", e.Name(), "err", err)
			continue
		}

		log.Debugw("removed old file", "name", e.Name(), "age", now.Sub(info.ModTime()))
		removed++
	}

	log.Infow("cache cleanup done", "removed", removed, "kept", len(entries)-removed)

	return removed, nil
}
