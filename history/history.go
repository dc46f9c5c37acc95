// Package history keeps finished transcriptions in SQLite and their audio
// as FLAC files next to it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"handy/encoder"
	"handy/log"
)

var ErrClosed = errors.New("history store closed")

const schema = `
	CREATE TABLE IF NOT EXISTS transcriptions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		rewritten_text TEXT,
		prompt TEXT
	);
	CREATE INDEX IF NOT EXISTS transcriptions_created_at ON transcriptions(created_at);
`

type Entry struct {
	ID            string
	CreatedAt     time.Time
	FileName      string
	RawText       string
	RewrittenText string
	Prompt        string
}

// Text is what was delivered for the entry.
func (e Entry) Text() string {
	if e.RewrittenText != "" {
		return e.RewrittenText
	}
	return e.RawText
}

type Store struct {
	db  *sql.DB
	dir string

	mu     sync.RWMutex
	closed bool
}

// DefaultDir returns <user config dir>/handy.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "handy"), nil
}

// Open opens the database at path, or an in-memory one for ":memory:".
// Recordings are written under recordingsDir; an empty recordingsDir keeps
// only the text.
func Open(path, recordingsDir string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	if recordingsDir != "" {
		if err := os.MkdirAll(recordingsDir, 0755); err != nil {
			return nil, fmt.Errorf("create recordings directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, dir: recordingsDir}, nil
}

func (s *Store) SaveTranscription(ctx context.Context, samples []float32, raw, rewritten, prompt string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	id := uuid.NewString()
	fileName := id + ".flac"
	if s.dir != "" {
		data, err := encoder.FLAC(samples)
		if err != nil {
			return fmt.Errorf("encode recording: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0644); err != nil {
			return fmt.Errorf("write recording: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions (id, created_at, file_name, raw_text, rewritten_text, prompt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, time.Now().UnixMilli(), fileName, raw, nullable(rewritten), nullable(prompt))
	if err != nil {
		if s.dir != "" {
			if rerr := os.Remove(filepath.Join(s.dir, fileName)); rerr != nil && !os.IsNotExist(rerr) {
				log.Warnf("failed to remove orphaned recording %s: %v", fileName, rerr)
			}
		}
		return fmt.Errorf("insert transcription: %w", err)
	}
	log.Debugf("saved transcription %s (%d samples)", id, len(samples))
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, file_name, raw_text, rewritten_text, prompt
		FROM transcriptions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		var rewritten, prompt sql.NullString
		if err := rows.Scan(&e.ID, &created, &e.FileName, &e.RawText, &rewritten, &prompt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		e.RewrittenText = rewritten.String
		e.Prompt = prompt.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry and its recording. Deleting an unknown id is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	var fileName string
	err := s.db.QueryRowContext(ctx, `SELECT file_name FROM transcriptions WHERE id = ?`, id).Scan(&fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup transcription: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	if s.dir != "" {
		if err := os.Remove(filepath.Join(s.dir, fileName)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove recording: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
