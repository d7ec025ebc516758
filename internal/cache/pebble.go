package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"calgen/internal/provider"
)

// PebbleStore keeps cache entries in a Pebble database, keyed by Key.String().
type PebbleStore struct {
	db     *pebble.DB
	maxAge time.Duration
	now    func() time.Time
}

func NewPebbleStore(dir string, maxAge time.Duration) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db, maxAge: maxAge, now: time.Now}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(key Key) ([]provider.RawRecord, bool, error) {
	v, closer, err := p.db.Get([]byte(key.String()))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()

	var entry Entry
	if err := json.Unmarshal(v, &entry); err != nil {
		return nil, false, nil
	}
	if !fresh(entry.FetchedAt, p.now(), p.maxAge) {
		return nil, false, nil
	}
	return entry.Records, true, nil
}

func (p *PebbleStore) Put(key Key, records []provider.RawRecord) error {
	if records == nil {
		records = []provider.RawRecord{}
	}
	b, err := json.Marshal(Entry{Key: key.String(), FetchedAt: p.now().UTC(), Records: records})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := p.db.Set([]byte(key.String()), b, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}
