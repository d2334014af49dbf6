// SPDX-License-Identifier: EPL-2.0

// Package mix holds the value types shared by the manager, the playback
// controller and the store.
package mix

import "slices"

// DefaultVolume is used for a file whose volume was never set.
const DefaultVolume = 1.0

// AudioFile is one track of a mix. Locator is a local path, a cache-relative
// remote path, or a "builtin:" name.
type AudioFile struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Locator string   `json:"locator" yaml:"locator"`
	Volume  *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// VolumeOr returns the file volume, or def when it is unset.
func (f AudioFile) VolumeOr(def float64) float64 {
	if f.Volume == nil {
		return def
	}

	return *f.Volume
}

// WithVolume returns a copy of f at volume v.
func (f AudioFile) WithVolume(v float64) AudioFile {
	f.Volume = &v
	return f
}

// Mix is an ordered set of files played together.
type Mix struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	AudioFiles []AudioFile `json:"files" yaml:"files"`
	Temporary  bool        `json:"temporary,omitempty" yaml:"temporary,omitempty"`
}

func (m Mix) index(id string) int {
	return slices.IndexFunc(m.AudioFiles, func(f AudioFile) bool { return f.ID == id })
}

// File returns the file with id.
func (m Mix) File(id string) (AudioFile, bool) {
	i := m.index(id)
	if i < 0 {
		return AudioFile{}, false
	}

	return m.AudioFiles[i], true
}

func (m Mix) HasFile(id string) bool {
	return m.index(id) >= 0
}

// WithFile returns a copy of m with f appended, or replacing the file with
// the same id in place.
func (m Mix) WithFile(f AudioFile) Mix {
	files := slices.Clone(m.AudioFiles)
	if i := m.index(f.ID); i >= 0 {
		files[i] = f
	} else {
		files = append(files, f)
	}
	m.AudioFiles = files

	return m
}

// WithoutFile returns a copy of m without the file id.
func (m Mix) WithoutFile(id string) Mix {
	m.AudioFiles = slices.DeleteFunc(slices.Clone(m.AudioFiles), func(f AudioFile) bool { return f.ID == id })
	return m
}

func (m Mix) FileIDs() []string {
	ids := make([]string, len(m.AudioFiles))
	for i, f := range m.AudioFiles {
		ids[i] = f.ID
	}

	return ids
}
