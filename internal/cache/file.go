package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"calgen/internal/provider"
)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string, maxAge time.Duration) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir, maxAge: maxAge, now: time.Now}, nil
}

func (s *FileStore) path(key Key) string {
	return filepath.Join(s.dir, key.fileName())
}

// Get loads the entry for key. Missing, corrupt or expired files are misses.
func (s *FileStore) Get(key Key) ([]provider.RawRecord, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Treat corruption as a miss; the next Put overwrites it.
		return nil, false, nil
	}
	if !fresh(entry.FetchedAt, s.now(), s.maxAge) {
		return nil, false, nil
	}
	return entry.Records, true, nil
}

// Put writes the entry for key atomically (temp file + rename).
func (s *FileStore) Put(key Key, records []provider.RawRecord) error {
	if records == nil {
		records = []provider.RawRecord{}
	}
	data, err := json.Marshal(Entry{Key: key.String(), FetchedAt: s.now().UTC(), Records: records})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
