// SPDX-License-Identifier: EPL-2.0

package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ik5/loopmix/mix"
	"github.com/ik5/loopmix/playback"
	"github.com/ik5/loopmix/store"
)

var _ playback.MixLookup = (*store.Store)(nil)

func openStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "db", "mixes.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func vol(v float64) *float64 { return &v }

func ids(files []mix.AudioFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}

	return out
}

func TestCreateAndGetMix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	created, err := s.CreateMix(ctx, "Rainy night", []mix.AudioFile{
		{ID: "rain", Name: "Rain", Locator: "rain.ogg", Volume: vol(0.8)},
		{ID: "thunder", Name: "Thunder", Locator: "thunder.ogg"},
	})
	if err != nil {
		t.Fatalf("CreateMix() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateMix() returned no id")
	}

	got, err := s.GetMix(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetMix() error = %v", err)
	}

	if got.Name != "Rainy night" || !slices.Equal(ids(got.AudioFiles), []string{"rain", "thunder"}) {
		t.Errorf("GetMix() = %+v", got)
	}
	if v := got.AudioFiles[0].Volume; v == nil || *v != 0.8 {
		t.Errorf("rain volume = %v, want 0.8", v)
	}
	if got.AudioFiles[1].Volume != nil {
		t.Error("thunder volume should be unset")
	}
	if got.AudioFiles[1].Locator != "thunder.ogg" {
		t.Errorf("thunder locator = %q", got.AudioFiles[1].Locator)
	}
}

func TestGetMix_NotFound(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	if _, err := s.GetMix(context.Background(), "nope"); !errors.Is(err, store.ErrMixNotFound) {
		t.Errorf("GetMix() error = %v, want ErrMixNotFound", err)
	}
}

func TestSaveMix_Replaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	m := mix.Mix{ID: "m1", Name: "First", AudioFiles: []mix.AudioFile{
		{ID: "a", Locator: "a.ogg"}, {ID: "b", Locator: "b.ogg"},
	}}
	if err := s.SaveMix(ctx, m); err != nil {
		t.Fatal(err)
	}

	m.Name = "Second"
	m.Temporary = true
	m.AudioFiles = []mix.AudioFile{{ID: "c", Locator: "c.ogg"}, {ID: "a", Locator: "a2.ogg"}}
	if err := s.SaveMix(ctx, m); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMix(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Second" || !got.Temporary {
		t.Errorf("mix fields not replaced: %+v", got)
	}
	if !slices.Equal(ids(got.AudioFiles), []string{"c", "a"}) {
		t.Errorf("files = %v, want [c a]", ids(got.AudioFiles))
	}
	if got.AudioFiles[1].Locator != "a2.ogg" {
		t.Errorf("file locator not updated: %q", got.AudioFiles[1].Locator)
	}

	if err := s.SaveMix(ctx, mix.Mix{Name: "no id"}); err == nil {
		t.Error("SaveMix() without id should fail")
	}
}

func TestListAndDeleteMixes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	for _, id := range []string{"one", "two", "three"} {
		m := mix.Mix{ID: id, Name: id, AudioFiles: []mix.AudioFile{{ID: "f-" + id, Locator: id + ".ogg"}}}
		if err := s.SaveMix(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteMix(ctx, "two"); err != nil {
		t.Fatalf("DeleteMix() error = %v", err)
	}
	if err := s.DeleteMix(ctx, "two"); !errors.Is(err, store.ErrMixNotFound) {
		t.Errorf("second DeleteMix() error = %v, want ErrMixNotFound", err)
	}

	mixes, err := s.ListMixes(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, m := range mixes {
		got = append(got, m.ID)
		if len(m.AudioFiles) != 1 {
			t.Errorf("mix %s has %d files, want 1", m.ID, len(m.AudioFiles))
		}
	}
	if !slices.Equal(got, []string{"one", "three"}) {
		t.Errorf("ListMixes() = %v, want [one three]", got)
	}
}

func TestMixFileEdits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	if err := s.SaveMix(ctx, mix.Mix{ID: "m", Name: "m"}); err != nil {
		t.Fatal(err)
	}

	for _, f := range []mix.AudioFile{
		{ID: "rain", Locator: "rain.ogg"},
		{ID: "wind", Locator: "wind.ogg", Volume: vol(0.5)},
		{ID: "rain", Locator: "rain.ogg", Volume: vol(0.3)},
	} {
		if err := s.AddFileToMix(ctx, "m", f); err != nil {
			t.Fatalf("AddFileToMix(%s) error = %v", f.ID, err)
		}
	}

	if err := s.SetFileVolume(ctx, "m", "wind", 0.9); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMix(ctx, "m")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(got.AudioFiles), []string{"rain", "wind"}) {
		t.Fatalf("files = %v, want [rain wind]", ids(got.AudioFiles))
	}
	if v := got.AudioFiles[0].VolumeOr(1); v != 0.3 {
		t.Errorf("rain volume = %v, want 0.3", v)
	}
	if v := got.AudioFiles[1].VolumeOr(1); v != 0.9 {
		t.Errorf("wind volume = %v, want 0.9", v)
	}

	if err := s.RemoveFileFromMix(ctx, "m", "rain"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFileFromMix(ctx, "m", "rain"); !errors.Is(err, store.ErrFileNotInMix) {
		t.Errorf("RemoveFileFromMix() twice error = %v, want ErrFileNotInMix", err)
	}
	if err := s.SetFileVolume(ctx, "m", "rain", 0.1); !errors.Is(err, store.ErrFileNotInMix) {
		t.Errorf("SetFileVolume() on removed file error = %v, want ErrFileNotInMix", err)
	}
	if err := s.AddFileToMix(ctx, "missing", mix.AudioFile{ID: "x", Locator: "x.ogg"}); !errors.Is(err, store.ErrMixNotFound) {
		t.Errorf("AddFileToMix() on unknown mix error = %v, want ErrMixNotFound", err)
	}

	// appended after the remaining file
	if err := s.AddFileToMix(ctx, "m", mix.AudioFile{ID: "fire", Locator: "fire.ogg"}); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetMix(ctx, "m")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(got.AudioFiles), []string{"wind", "fire"}) {
		t.Errorf("files = %v, want [wind fire]", ids(got.AudioFiles))
	}
}

func TestParseLibrary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr bool
		mixes   int
	}{
		{
			name: "valid",
			data: `
mixes:
  - id: rainy
    name: Rainy
    files:
      - id: rain
        locator: rain.ogg
        volume: 0.7
  - id: empty
    name: Empty
`,
			mixes: 2,
		},
		{name: "empty", data: ``, mixes: 0},
		{name: "missing id", data: "mixes:\n  - name: x\n", wantErr: true},
		{name: "duplicate", data: "mixes:\n  - id: a\n  - id: a\n", wantErr: true},
		{name: "file without locator", data: "mixes:\n  - id: a\n    files:\n      - id: f\n", wantErr: true},
		{name: "not yaml", data: "mixes: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lib, err := store.ParseLibrary([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLibrary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(lib.Mixes) != tt.mixes {
				t.Errorf("mixes = %d, want %d", len(lib.Mixes), tt.mixes)
			}
		})
	}
}

const libraryYAML = `
mixes:
  - id: rainy
    name: Rainy
    files:
      - id: rain
        locator: rain.ogg
        volume: 0.7
      - id: thunder
        locator: thunder.ogg
`

func TestImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(libraryYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	lib, err := store.LoadLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := lib.Mix("rainy"); !ok {
		t.Fatal("library has no rainy mix")
	}

	n, err := s.Import(ctx, lib)
	if err != nil || n != 1 {
		t.Fatalf("Import() = %d, %v", n, err)
	}

	got, err := s.GetMix(ctx, "rainy")
	if err != nil {
		t.Fatal(err)
	}
	if got.AudioFiles[0].VolumeOr(1) != 0.7 || got.AudioFiles[1].VolumeOr(1) != 1 {
		t.Errorf("imported volumes wrong: %+v", got.AudioFiles)
	}
}

func TestWatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte("mixes: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan store.Library, 8)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, path, func(lib store.Library) {
			select {
			case got <- lib:
			default:
			}
		})
	}()

	// keep saving until the watcher is up and has seen one
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case lib := <-got:
			if _, ok := lib.Mix("rainy"); !ok {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() error = %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte(libraryYAML), 0o600); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload seen")
		}
	}
}
