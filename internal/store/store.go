// Package store persists serialized session records in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ProfilePrefix marks keys that hold user profiles rather than sessions.
const ProfilePrefix = "profile_"

type Store struct {
	db *sql.DB
}

// Row is one stored record.
type Row struct {
	SessionID string
	UserID    string
	Data      []byte
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dbPath, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save upserts a record. The last write for a session id wins.
func (s *Store) Save(ctx context.Context, sessionID, userID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, data) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET user_id = excluded.user_id, data = excluded.data`,
		sessionID, userID, string(data),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the stored data for a session id.
// Returns nil and nil error if the id is unknown.
func (s *Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sessionID, err)
	}
	return []byte(data), nil
}

// ListSessions returns all session rows, profiles excluded, ordered by id.
func (s *Store) ListSessions(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, data FROM sessions
		 WHERE substr(session_id, 1, ?) != ? ORDER BY session_id`,
		len(ProfilePrefix), ProfilePrefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		var data string
		if err := rows.Scan(&r.SessionID, &r.UserID, &data); err != nil {
			return nil, err
		}
		r.Data = []byte(data)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionCount returns the number of stored sessions, profiles excluded.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE substr(session_id, 1, ?) != ?`,
		len(ProfilePrefix), ProfilePrefix,
	).Scan(&count)
	return count, err
}
