package store

import (
	"context"
	"database/sql"
)

// Metadata keys.
const (
	KeyCorpusSHA256 = "corpus_sha256"
	KeyCorpusPath   = "corpus_path"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RecordCorpus stores the corpus fingerprint and reports whether it differs
// from the one recorded before. The first recording is not a change.
func (s *Store) RecordCorpus(ctx context.Context, path, sum string) (changed bool, err error) {
	prev, err := s.GetMetadata(ctx, KeyCorpusSHA256)
	if err != nil {
		return false, err
	}
	if err := s.SetMetadata(ctx, KeyCorpusSHA256, sum); err != nil {
		return false, err
	}
	if err := s.SetMetadata(ctx, KeyCorpusPath, path); err != nil {
		return false, err
	}
	return prev != "" && prev != sum, nil
}
