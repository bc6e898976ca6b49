// Package history persists REPL input in SQLite. Every chunk and directive
// the user submits is appended; the autoimport cache and readline are seeded
// from the tail on startup.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history store is closed")

// Entry is one stored input.
type Entry struct {
	// ID is a ULID, so entries sort by creation time.
	ID        string
	Session   string
	Source    string
	CreatedAt time.Time
}

// Store is a history database. Its methods are safe for concurrent use.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	session string
	closed  bool
	log     *zap.Logger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSession pins the session id instead of generating one.
func WithSession(id string) Option {
	return func(s *Store) { s.session = id }
}

const schema = `
CREATE TABLE IF NOT EXISTS history (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
`

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// an in-memory database is private to its connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db, session: uuid.NewString(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	s.log.Debug("history store opened", zap.String("path", path), zap.String("session", s.session))
	return s, nil
}

// Session is the id entries appended through this Store are tagged with.
func (s *Store) Session() string { return s.session }

// Append records source. Blank input is ignored.
func (s *Store) Append(source string) error {
	if len(source) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(
		`INSERT INTO history (id, session_id, source, created_at) VALUES (?, ?, ?, ?)`,
		ulid.Make().String(), s.session, source, time.Now().UTC(),
	)
	if err != nil {
		s.log.Warn("history append failed", zap.Error(err))
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Tail returns the sources of the newest limit entries, oldest first.
// limit <= 0 returns everything.
func (s *Store) Tail(limit int) ([]string, error) {
	entries, err := s.TailEntries(limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Source)
	}
	return out, nil
}

// TailEntries is Tail with entry metadata.
func (s *Store) TailEntries(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, source, created_at FROM (
			SELECT seq, id, session_id, source, created_at
			FROM history ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
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
