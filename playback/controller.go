// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ik5/loopmix/manager"
	"github.com/ik5/loopmix/mix"
)

var log = logging.Logger("loopmix/playback")

// MixLookup finds a stored mix by id.
type MixLookup interface {
	GetMix(ctx context.Context, id string) (mix.Mix, error)
}

// FileCache makes the files of a mix available locally. onStart and onEnd
// are called around every real download.
type FileCache interface {
	ResolveAll(ctx context.Context, files []mix.AudioFile, onStart, onEnd func(id string)) error
}

type PlayOptions struct {
	// ForcePlay plays the mix even when it is already playing.
	ForcePlay bool
}

// Controller sequences the manager and the shared State. Its operations
// run one at a time.
type Controller struct {
	manager *manager.Manager
	state   *State
	mixes   MixLookup
	files   FileCache

	mu sync.Mutex
}

// NewController wires a controller. files may be nil when every locator is
// already local.
func NewController(m *manager.Manager, state *State, mixes MixLookup, files FileCache) *Controller {
	return &Controller{
		manager: m,
		state:   state,
		mixes:   mixes,
		files:   files,
	}
}

func (c *Controller) State() *State {
	return c.state
}

func (c *Controller) Manager() *manager.Manager {
	return c.manager
}

// Attach makes the controller follow session status changes reported to
// the manager.
func (c *Controller) Attach() {
	c.manager.SetPlaybackStatusCallback(c.HandlePlaybackStatusChange)
}

func (c *Controller) attachIfMissing() {
	if !c.manager.HasPlaybackStatusCallback() {
		c.Attach()
	}
}

// isNowPlaying reports whether id is still the selected mix.
func (c *Controller) isNowPlaying(id string) bool {
	cur, ok := c.state.NowPlaying()
	return ok && cur.ID == id
}

// SetMixAsNowPlaying selects m and, when the manager holds another mix,
// downloads m's files and loads them in place of the old ones.
func (c *Controller) SetMixAsNowPlaying(ctx context.Context, m mix.Mix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.setMixAsNowPlaying(ctx, m)
	return err
}

// setMixAsNowPlaying reports false when another mix was selected while m's
// files were downloading. The manager then keeps what it had.
func (c *Controller) setMixAsNowPlaying(ctx context.Context, m mix.Mix) (bool, error) {
	if !c.isNowPlaying(m.ID) {
		c.state.SetNowPlaying(&m)
	}

	if c.manager.MixID() == m.ID {
		return true, nil
	}

	log.Infow("switching mix", "mix", m.ID, "from", c.manager.MixID())

	offline := c.state.IsOffline()
	if !offline && c.files != nil {
		err := c.files.ResolveAll(ctx, m.AudioFiles,
			func(id string) { c.state.SetDownloading(id, true) },
			func(id string) { c.state.SetDownloading(id, false) },
		)
		if err != nil {
			return false, fmt.Errorf("download files of mix %s: %w", m.ID, err)
		}
	}

	if !c.isNowPlaying(m.ID) {
		log.Infow("mix deselected during download", "mix", m.ID)
		return false, nil
	}

	c.manager.ClearFiles(ctx)
	c.manager.SetMetadata(ctx, m.ID, m.Name)
	c.manager.SetOffline(offline)

	for _, f := range m.AudioFiles {
		if err := c.manager.AddFile(ctx, f); err != nil {
			log.Warnw("file left out of mix", "mix", m.ID, "file", f.ID, "err", err)
		}
	}

	return true, nil
}

// ClearNowPlayingMix stops playback, deselects the mix and unloads it.
func (c *Controller) ClearNowPlayingMix(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SetPlaying(false)
	c.state.SetNowPlaying(nil)
	c.manager.ClearFiles(ctx)
	c.manager.SetMetadata(ctx, "", "")
}

// PlayMix loads m when needed and plays all its files. A different mix that
// is playing is stopped first. Per-file playback failures are logged; only
// setup failures such as downloads are returned.
func (c *Controller) PlayMix(ctx context.Context, m mix.Mix, opts PlayOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playMix(ctx, m, opts)
}

func (c *Controller) playMix(ctx context.Context, m mix.Mix, opts PlayOptions) error {
	playing := c.state.IsPlaying()
	loaded := c.manager.MixID() == m.ID

	if loaded && playing && !opts.ForcePlay {
		log.Debugw("mix already playing", "mix", m.ID)
		return nil
	}

	if !loaded && playing {
		c.stopPlayingMix(ctx)
	}

	c.attachIfMissing()

	selected, err := c.setMixAsNowPlaying(ctx, m)
	if err != nil {
		return err
	}
	if !selected {
		return nil
	}
	c.state.SetPlaying(true)

	if err := c.manager.PlayAllFiles(ctx); err != nil {
		log.Warnw("some files did not start", "mix", m.ID, "err", err)
	}

	return nil
}

// StopPlayingMix pauses every file. The mix stays selected.
func (c *Controller) StopPlayingMix(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopPlayingMix(ctx)
}

func (c *Controller) stopPlayingMix(ctx context.Context) {
	c.manager.StopAllFiles(ctx)
	c.state.SetPlaying(false)
}

// TogglePlayingMix plays m unless it is the selected mix and playing, in
// which case it stops it.
func (c *Controller) TogglePlayingMix(ctx context.Context, m mix.Mix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isNowPlaying(m.ID) || !c.state.IsPlaying() {
		return c.playMix(ctx, m, PlayOptions{})
	}

	c.stopPlayingMix(ctx)

	return nil
}

// HandlePlaybackStatusChange follows a session status change that happened
// outside the controller, such as a lock screen pause.
func (c *Controller) HandlePlaybackStatusChange(ctx context.Context, status manager.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log.Infow("playback status changed", "status", status)

	switch status {
	case manager.StatusPaused, manager.StatusStopped:
		c.stopPlayingMix(ctx)
	case manager.StatusPlaying:
		id := c.manager.MixID()
		if id == "" {
			return
		}

		m, err := c.mixes.GetMix(ctx, id)
		if err != nil {
			log.Errorw("cannot resume mix", "mix", id, "err", err)
			return
		}

		if err := c.playMix(ctx, m, PlayOptions{}); err != nil {
			log.Errorw("resume mix", "mix", id, "err", err)
		}
	}
}

func (c *Controller) PlayAudioFile(ctx context.Context, f mix.AudioFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attachIfMissing()

	return c.manager.PlayFile(ctx, f)
}

func (c *Controller) StopAudioFile(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attachIfMissing()
	c.manager.StopFile(ctx, id)
}

func (c *Controller) ToggleAudioFile(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attachIfMissing()

	return c.manager.ToggleFile(ctx, id)
}

func (c *Controller) AddAudioFileToMixAndPlay(ctx context.Context, f mix.AudioFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.manager.AddFile(ctx, f); err != nil {
		return err
	}

	return c.manager.PlayFile(ctx, f)
}

// StopAudioFileAndRemoveFromMix stops and unloads one file. Removing the
// last file does not stop the mix.
func (c *Controller) StopAudioFileAndRemoveFromMix(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.manager.StopFile(ctx, id)
	c.manager.RemoveFile(ctx, id)
}

// SyncMix applies an edited version of the loaded mix: removed files are
// unloaded, new files are loaded (and started when the mix is playing) and
// changed volumes are applied. A mix that is not loaded is ignored.
func (c *Controller) SyncMix(ctx context.Context, m mix.Mix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manager.MixID() != m.ID {
		return nil
	}
	if c.isNowPlaying(m.ID) {
		c.state.SetNowPlaying(&m)
	}

	loaded := c.manager.Files()
	for _, f := range loaded {
		if !m.HasFile(f.ID) {
			c.manager.RemoveFile(ctx, f.ID)
		}
	}

	playing := c.state.IsPlaying()
	var firstErr error

	for _, f := range m.AudioFiles {
		cur, ok := mix.Mix{AudioFiles: loaded}.File(f.ID)
		if !ok {
			var err error
			if playing {
				err = c.manager.PlayFile(ctx, f)
			} else {
				err = c.manager.AddFile(ctx, f)
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}

		want := f.VolumeOr(mix.DefaultVolume)
		if cur.VolumeOr(mix.DefaultVolume) != want {
			if err := c.manager.ChangeVolume(f.ID, want); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
