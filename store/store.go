// SPDX-License-Identifier: EPL-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	_ "modernc.org/sqlite"

	"github.com/ik5/loopmix/mix"
)

var log = logging.Logger("loopmix/store")

var (
	ErrMixNotFound  = errors.New("mix not found")
	ErrFileNotInMix = errors.New("file is not part of the mix")
)

const schema = `
CREATE TABLE IF NOT EXISTS audio_files (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	locator TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS mixes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	temporary  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mix_files (
	mix_id   TEXT NOT NULL REFERENCES mixes(id) ON DELETE CASCADE,
	file_id  TEXT NOT NULL REFERENCES audio_files(id),
	position INTEGER NOT NULL,
	volume   REAL,
	PRIMARY KEY (mix_id, file_id)
);
`

// Store keeps mixes and their files in SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	// pragmas in the DSN apply to every pooled connection
	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log.Debugw("store open", "path", path)

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateMix stores a new mix under a fresh id and returns it.
func (s *Store) CreateMix(ctx context.Context, name string, files []mix.AudioFile) (mix.Mix, error) {
	m := mix.Mix{ID: uuid.NewString(), Name: name, AudioFiles: files}
	if err := s.SaveMix(ctx, m); err != nil {
		return mix.Mix{}, err
	}

	return m, nil
}

// SaveMix inserts m or replaces the stored mix with the same id, file list
// included.
func (s *Store) SaveMix(ctx context.Context, m mix.Mix) error {
	if m.ID == "" {
		return errors.New("save mix: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mixes (id, name, temporary) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, temporary = excluded.temporary`,
			m.ID, m.Name, m.Temporary); err != nil {
			return fmt.Errorf("upsert mix: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM mix_files WHERE mix_id = ?`, m.ID); err != nil {
			return fmt.Errorf("clear mix files: %w", err)
		}

		for i, f := range m.AudioFiles {
			if err := upsertFile(ctx, tx, f); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO mix_files (mix_id, file_id, position, volume) VALUES (?, ?, ?, ?)`,
				m.ID, f.ID, i, nullVolume(f.Volume)); err != nil {
				return fmt.Errorf("insert mix file %s: %w", f.ID, err)
			}
		}

		return nil
	})
}

// GetMix returns the mix with id and its files in order.
func (s *Store) GetMix(ctx context.Context, id string) (mix.Mix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := mix.Mix{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, temporary FROM mixes WHERE id = ?`, id).Scan(&m.Name, &m.Temporary)
	if errors.Is(err, sql.ErrNoRows) {
		return mix.Mix{}, fmt.Errorf("%w: %s", ErrMixNotFound, id)
	}
	if err != nil {
		return mix.Mix{}, fmt.Errorf("get mix %s: %w", id, err)
	}

	if m.AudioFiles, err = s.files(ctx, id); err != nil {
		return mix.Mix{}, err
	}

	return m, nil
}

// ListMixes returns every stored mix, oldest first.
func (s *Store) ListMixes(ctx context.Context) ([]mix.Mix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, temporary FROM mixes ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list mixes: %w", err)
	}

	var mixes []mix.Mix
	for rows.Next() {
		var m mix.Mix
		if err := rows.Scan(&m.ID, &m.Name, &m.Temporary); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mix: %w", err)
		}
		mixes = append(mixes, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mixes: %w", err)
	}

	for i := range mixes {
		if mixes[i].AudioFiles, err = s.files(ctx, mixes[i].ID); err != nil {
			return nil, err
		}
	}

	return mixes, nil
}

func (s *Store) files(ctx context.Context, mixID string) ([]mix.AudioFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.locator, mf.volume
		FROM mix_files mf JOIN audio_files f ON f.id = mf.file_id
		WHERE mf.mix_id = ?
		ORDER BY mf.position`, mixID)
	if err != nil {
		return nil, fmt.Errorf("files of mix %s: %w", mixID, err)
	}
	defer rows.Close()

	var files []mix.AudioFile
	for rows.Next() {
		var (
			f   mix.AudioFile
			vol sql.NullFloat64
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Locator, &vol); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if vol.Valid {
			f = f.WithVolume(vol.Float64)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// DeleteMix removes the mix with id.
func (s *Store) DeleteMix(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM mixes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete mix %s: %w", id, err)
	}

	return expectRow(res, fmt.Errorf("%w: %s", ErrMixNotFound, id))
}

// AddFileToMix appends f to the mix, or updates its volume when the mix
// already has it.
func (s *Store) AddFileToMix(ctx context.Context, mixID string, f mix.AudioFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := mixExists(ctx, tx, mixID); err != nil {
			return err
		}
		if err := upsertFile(ctx, tx, f); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO mix_files (mix_id, file_id, position, volume)
			VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM mix_files WHERE mix_id = ?), ?)
			ON CONFLICT(mix_id, file_id) DO UPDATE SET volume = excluded.volume`,
			mixID, f.ID, mixID, nullVolume(f.Volume))
		if err != nil {
			return fmt.Errorf("add file %s to mix %s: %w", f.ID, mixID, err)
		}

		return nil
	})
}

func (s *Store) RemoveFileFromMix(ctx context.Context, mixID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mix_files WHERE mix_id = ? AND file_id = ?`, mixID, fileID)
	if err != nil {
		return fmt.Errorf("remove file %s from mix %s: %w", fileID, mixID, err)
	}

	return expectRow(res, fmt.Errorf("%w: %s in %s", ErrFileNotInMix, fileID, mixID))
}

// SetFileVolume records the volume of one file in one mix.
func (s *Store) SetFileVolume(ctx context.Context, mixID, fileID string, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE mix_files SET volume = ? WHERE mix_id = ? AND file_id = ?`, volume, mixID, fileID)
	if err != nil {
		return fmt.Errorf("set volume of %s in %s: %w", fileID, mixID, err)
	}

	return expectRow(res, fmt.Errorf("%w: %s in %s", ErrFileNotInMix, fileID, mixID))
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			log.Warnw("rollback", "err", rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func mixExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM mixes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrMixNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("look up mix %s: %w", id, err)
	}

	return nil
}

func upsertFile(ctx context.Context, tx *sql.Tx, f mix.AudioFile) error {
	if f.ID == "" {
		return errors.New("store file: empty id")
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO audio_files (id, name, locator) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, locator = excluded.locator`,
		f.ID, f.Name, f.Locator)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.ID, err)
	}

	return nil
}

func nullVolume(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *v, Valid: true}
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}

	return nil
}
