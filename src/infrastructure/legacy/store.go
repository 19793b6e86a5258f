// Package legacy reads and writes the pre-remote local memo store.
// The whole memo list is kept as one JSON document under a single key,
// the same layout the browser build kept in localStorage.
package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ai-memo-app/src/domain"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// StorageKey is the key holding the serialized memo list
const StorageKey = "memo-app-memos"

// Store is a key/value table in a local SQLite file
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open opens (and creates if needed) the SQLite file at path
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("legacy: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("legacy: open database: %w", err)
	}
	// 書き込みは常に全件置き換えなので接続は1本で十分
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("legacy: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS local_storage (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("legacy: migration: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetMemos returns the stored list. A missing or unreadable value yields an
// empty list; the failure is logged, not returned.
func (s *Store) GetMemos(ctx context.Context) ([]domain.Memo, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, StorageKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Memo{}, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("ローカルストアの読み込みに失敗")
		return []domain.Memo{}, nil
	}

	var memos []domain.Memo
	if err := json.Unmarshal([]byte(value), &memos); err != nil {
		s.logger.WithError(err).Warn("ローカルストアのデータが壊れています")
		return []domain.Memo{}, nil
	}
	if memos == nil {
		memos = []domain.Memo{}
	}
	for i := range memos {
		if memos[i].Tags == nil {
			memos[i].Tags = []string{}
		}
	}
	return memos, nil
}

// SaveMemos replaces the stored list
func (s *Store) SaveMemos(ctx context.Context, memos []domain.Memo) error {
	if memos == nil {
		memos = []domain.Memo{}
	}
	data, err := json.Marshal(memos)
	if err != nil {
		return fmt.Errorf("legacy: encode memos: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO local_storage (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		StorageKey, string(data))
	if err != nil {
		s.logger.WithError(err).Error("ローカルストアへの保存に失敗")
		return fmt.Errorf("legacy: save memos: %w", err)
	}
	return nil
}

// ClearMemos removes the stored list
func (s *Store) ClearMemos(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, StorageKey); err != nil {
		return fmt.Errorf("legacy: clear memos: %w", err)
	}
	return nil
}
