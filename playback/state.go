// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"maps"
	"slices"
	"sync"

	"github.com/ik5/loopmix/mix"
)

// Snapshot is a copy of the State at one point in time.
type Snapshot struct {
	NowPlaying  *mix.Mix
	Playing     bool
	Offline     bool
	Downloading []string
}

// State is the shared "now playing" cell: the selected mix, whether it is
// playing, the offline flag and the files being downloaded.
type State struct {
	mu          sync.RWMutex
	nowPlaying  *mix.Mix
	playing     bool
	offline     bool
	downloading map[string]struct{}

	subMu sync.RWMutex
	subs  map[chan Snapshot]struct{}
}

func NewState() *State {
	return &State{
		downloading: make(map[string]struct{}),
		subs:        make(map[chan Snapshot]struct{}),
	}
}

// NowPlaying returns the selected mix.
func (s *State) NowPlaying() (mix.Mix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.nowPlaying == nil {
		return mix.Mix{}, false
	}

	return *s.nowPlaying, true
}

// SetNowPlaying selects m. Nil clears the selection.
func (s *State) SetNowPlaying(m *mix.Mix) {
	s.mu.Lock()
	if m != nil {
		cp := *m
		m = &cp
	}
	s.nowPlaying = m
	s.mu.Unlock()

	s.notify()
}

func (s *State) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.playing
}

func (s *State) SetPlaying(playing bool) {
	s.mu.Lock()
	changed := s.playing != playing
	s.playing = playing
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *State) IsOffline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.offline
}

func (s *State) SetOffline(offline bool) {
	s.mu.Lock()
	changed := s.offline != offline
	s.offline = offline
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// SetDownloading marks the file id as being downloaded or not.
func (s *State) SetDownloading(id string, downloading bool) {
	s.mu.Lock()
	_, was := s.downloading[id]
	if downloading {
		s.downloading[id] = struct{}{}
	} else {
		delete(s.downloading, id)
	}
	s.mu.Unlock()

	if was != downloading {
		s.notify()
	}
}

func (s *State) IsDownloading(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.downloading[id]
	return ok
}

// AnyDownloading reports whether any file of m is being downloaded.
func (s *State) AnyDownloading(m mix.Mix) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range m.AudioFiles {
		if _, ok := s.downloading[f.ID]; ok {
			return true
		}
	}

	return false
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Playing:     s.playing,
		Offline:     s.offline,
		Downloading: slices.Sorted(maps.Keys(s.downloading)),
	}
	if s.nowPlaying != nil {
		cp := *s.nowPlaying
		snap.NowPlaying = &cp
	}

	return snap
}

// Subscribe returns a channel that receives a Snapshot after every change.
// Slow subscribers miss updates rather than block the writer. cancel
// closes the channel.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}

	return ch, cancel
}

func (s *State) notify() {
	snap := s.Snapshot()

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
