// SPDX-License-Identifier: EPL-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/loopmix/looper"
	"github.com/ik5/loopmix/mix"
)

var log = logging.Logger("loopmix/manager")

type pendingAdd struct {
	done chan struct{}
	err  error
}

// Manager owns one looper per file of the loaded mix, plus the keep-alive
// track.
type Manager struct {
	opts Options

	mu             sync.Mutex
	mixID          string
	title          string
	files          []mix.AudioFile
	loopers        map[string]*looper.Looper
	offline        bool
	keepAliveReady bool
	keepAliveInit  chan struct{}
	adding         map[string]*pendingAdd
	// epoch changes on every ClearFiles so in-flight adds can tell they
	// belong to a mix that is gone.
	epoch uint64

	statusCallback StatusCallback
	status         Status
}

func New(opts Options) (*Manager, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	opts = opts.withDefaults()

	return &Manager{
		opts:    opts,
		title:   opts.Title,
		loopers: make(map[string]*looper.Looper),
		adding:  make(map[string]*pendingAdd),
		status:  StatusStopped,
	}, nil
}

func (m *Manager) MixID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mixID
}

func (m *Manager) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.title
}

// Files returns the loaded files in insertion order.
func (m *Manager) Files() []mix.AudioFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.files)
}

func (m *Manager) HasFile(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.hasFileLocked(id)
}

func (m *Manager) hasFileLocked(id string) bool {
	return slices.ContainsFunc(m.files, func(f mix.AudioFile) bool { return f.ID == id })
}

// Looper returns the looper for id, or nil.
func (m *Manager) Looper(id string) *looper.Looper {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loopers[id]
}

func (m *Manager) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.offline = offline
}

func (m *Manager) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.offline
}

func (m *Manager) KeepAliveReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.keepAliveReady
}

// Status returns the last known aggregate playback status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = s
}

func (m *Manager) SetPlaybackStatusCallback(fn StatusCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statusCallback = fn
}

func (m *Manager) HasPlaybackStatusCallback() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.statusCallback != nil
}

// ReportSessionStatus is called by the platform when the playback session
// changes on its own. The status callback runs only on a real change.
func (m *Manager) ReportSessionStatus(ctx context.Context, status Status) {
	m.mu.Lock()
	if status == m.status {
		m.mu.Unlock()
		return
	}
	m.status = status
	fn := m.statusCallback
	m.mu.Unlock()

	log.Debugw("session status", "status", status)

	if fn != nil {
		fn(ctx, status)
	}
}

// ensureKeepAlive creates the keep-alive looper unless it already exists.
// A failure is logged and retried on the next call.
func (m *Manager) ensureKeepAlive(ctx context.Context) {
	m.mu.Lock()
	if m.keepAliveReady {
		m.mu.Unlock()
		return
	}
	if wait := m.keepAliveInit; wait != nil {
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	m.keepAliveInit = done
	epoch := m.epoch
	title := m.title
	m.mu.Unlock()

	defer close(done)

	l := looper.New(m.opts.Backend, m.opts.KeepAliveSource, m.opts.KeepAliveVolume, m.opts.Looper)
	err := l.Init(ctx)

	m.mu.Lock()
	m.keepAliveInit = nil
	stale := epoch != m.epoch
	if err == nil && !stale {
		m.loopers[KeepAliveID] = l
		m.keepAliveReady = true
	}
	m.mu.Unlock()

	switch {
	case err != nil:
		log.Errorw("keep-alive init failed", "source", m.opts.KeepAliveSource, "err", err)
		l.Destroy(ctx)
	case stale:
		l.Destroy(ctx)
	default:
		log.Infow("keep-alive ready", "source", m.opts.KeepAliveSource, "title", title)
	}
}

// AddFile creates and initializes a looper for f. Adding a present file or
// the keep-alive id does nothing. Offline, a file that is not available
// locally is skipped. Concurrent adds of one file share the same attempt.
func (m *Manager) AddFile(ctx context.Context, f mix.AudioFile) error {
	if f.ID == KeepAliveID {
		return nil
	}

	m.ensureKeepAlive(ctx)

	if m.IsOffline() && !m.opts.Resolver.Contains(f) {
		log.Infow("offline and not cached, skipping file", "file", f.ID)
		return nil
	}

	m.mu.Lock()
	if p, ok := m.adding[f.ID]; ok {
		m.mu.Unlock()
		return p.wait(ctx)
	}
	if m.hasFileLocked(f.ID) {
		m.mu.Unlock()
		log.Debugw("file already added", "file", f.ID)
		return nil
	}

	p := &pendingAdd{done: make(chan struct{})}
	m.adding[f.ID] = p
	m.files = append(m.files, f)
	epoch := m.epoch
	m.mu.Unlock()

	l, err := m.build(ctx, f)

	m.mu.Lock()
	// RemoveFile and ClearFiles drop the pending entry, so a newer add of
	// the same file owns it now.
	stale := epoch != m.epoch || m.adding[f.ID] != p
	if !stale {
		delete(m.adding, f.ID)
	}
	switch {
	case err != nil:
		if !stale {
			m.files = slices.DeleteFunc(m.files, func(o mix.AudioFile) bool { return o.ID == f.ID })
		}
	case !stale:
		m.loopers[f.ID] = l
	}
	p.err = err
	m.mu.Unlock()
	close(p.done)

	if err != nil {
		log.Errorw("add file failed", "file", f.ID, "err", err)
		return err
	}
	if stale {
		log.Debugw("file removed while adding", "file", f.ID)
		l.Destroy(ctx)
	}

	return nil
}

func (p *pendingAdd) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) build(ctx context.Context, f mix.AudioFile) (*looper.Looper, error) {
	path, err := m.opts.Resolver.Resolve(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", f.ID, err)
	}

	vol := f.VolumeOr(mix.DefaultVolume)
	l := looper.New(m.opts.Backend, path, vol, m.opts.Looper)

	// an inert looper is kept; Play retries the load
	if err := l.Init(ctx); err != nil {
		log.Warnw("looper init failed", "file", f.ID, "source", path, "err", err)
	}
	l.SetVolume(vol)

	return l, nil
}

// RemoveFile stops and destroys the looper for id. Unknown ids and the
// keep-alive id are ignored.
func (m *Manager) RemoveFile(ctx context.Context, id string) {
	if id == KeepAliveID {
		return
	}

	m.mu.Lock()
	m.files = slices.DeleteFunc(m.files, func(f mix.AudioFile) bool { return f.ID == id })
	l := m.loopers[id]
	delete(m.loopers, id)
	delete(m.adding, id)
	m.mu.Unlock()

	if l == nil {
		return
	}

	l.Pause(ctx)
	l.Destroy(ctx)
}

// PlayFile adds f when needed and starts its looper.
func (m *Manager) PlayFile(ctx context.Context, f mix.AudioFile) error {
	if f.ID != KeepAliveID {
		if err := m.AddFile(ctx, f); err != nil {
			return err
		}
	}

	l := m.Looper(f.ID)
	if l == nil {
		err := fmt.Errorf("play %s: %w", f.ID, ErrLooperNotFound)
		log.Errorw("play file", "file", f.ID, "err", err)
		return err
	}

	l.Play(ctx)

	return nil
}

// StopFile pauses the looper for id, if there is one.
func (m *Manager) StopFile(ctx context.Context, id string) {
	if l := m.Looper(id); l != nil {
		l.Pause(ctx)
	}
}

func (m *Manager) ToggleFile(ctx context.Context, id string) error {
	l := m.Looper(id)
	if l == nil {
		err := fmt.Errorf("toggle %s: %w", id, ErrLooperNotFound)
		log.Errorw("toggle file", "file", id, "err", err)
		return err
	}

	if l.IsPlaying() {
		l.Pause(ctx)
	} else {
		l.Play(ctx)
	}

	return nil
}

// ChangeVolume sets the volume of the looper for id and records it on the
// loaded file.
func (m *Manager) ChangeVolume(id string, volume float64) error {
	m.mu.Lock()
	l := m.loopers[id]
	if l != nil {
		if i := slices.IndexFunc(m.files, func(f mix.AudioFile) bool { return f.ID == id }); i >= 0 {
			m.files[i] = m.files[i].WithVolume(volume)
		}
	}
	m.mu.Unlock()

	if l == nil {
		err := fmt.Errorf("change volume %s: %w", id, ErrLooperNotFound)
		log.Errorw("change volume", "file", id, "err", err)
		return err
	}

	l.SetVolume(volume)

	return nil
}

// SetMetadata records the loaded mix and updates the session display.
func (m *Manager) SetMetadata(ctx context.Context, mixID, title string) {
	m.ensureKeepAlive(ctx)

	m.mu.Lock()
	m.mixID = mixID
	m.title = title
	m.mu.Unlock()

	if err := m.opts.Session.UpdateMetadata(ctx, mixID, title); err != nil {
		log.Warnw("update session metadata", "mix", mixID, "err", err)
	}
}

// PlayAllFiles starts the keep-alive track, then every file at once. A
// failing file does not hold back the others; all failures are joined.
func (m *Manager) PlayAllFiles(ctx context.Context) error {
	m.ensureKeepAlive(ctx)
	if err := m.PlayFile(ctx, mix.AudioFile{ID: KeepAliveID}); err != nil {
		log.Warnw("keep-alive not playing", "err", err)
	}

	files := m.Files()
	log.Debugw("playing all files", "mix", m.MixID(), "files", len(files))

	err := fanOut(files, func(f mix.AudioFile) error { return m.PlayFile(ctx, f) })
	m.setStatus(StatusPlaying)

	return err
}

// StopAllFiles pauses the keep-alive track and every file at once.
func (m *Manager) StopAllFiles(ctx context.Context) {
	files := m.Files()
	ids := make([]string, 0, len(files)+1)
	if m.KeepAliveReady() {
		ids = append(ids, KeepAliveID)
	}
	for _, f := range files {
		ids = append(ids, f.ID)
	}

	_ = fanOut(ids, func(id string) error {
		m.StopFile(ctx, id)
		return nil
	})
	m.setStatus(StatusPaused)
}

// ClearFiles stops and destroys every looper, the keep-alive track first
// and then the files newest first. The mix id and title are kept.
func (m *Manager) ClearFiles(ctx context.Context) {
	m.StopAllFiles(ctx)

	m.mu.Lock()
	order := make([]*looper.Looper, 0, len(m.loopers))
	if l := m.loopers[KeepAliveID]; l != nil {
		order = append(order, l)
	}
	for _, f := range slices.Backward(m.files) {
		if l := m.loopers[f.ID]; l != nil {
			order = append(order, l)
		}
	}
	for id, l := range m.loopers {
		if id != KeepAliveID && !m.hasFileLocked(id) {
			order = append(order, l)
		}
	}

	m.files = nil
	m.loopers = make(map[string]*looper.Looper)
	m.adding = make(map[string]*pendingAdd)
	m.keepAliveReady = false
	m.epoch++
	m.status = StatusStopped
	m.mu.Unlock()

	for _, l := range order {
		l.Destroy(ctx)
	}
}

// fanOut runs fn for every item concurrently and joins the failures. One
// failure never cancels the rest.
func fanOut[T any](items []T, fn func(T) error) error {
	errs := make([]error, len(items))

	var g errgroup.Group
	for i, it := range items {
		g.Go(func() error {
			errs[i] = fn(it)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
