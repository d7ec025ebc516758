// Package cache stores successful provider responses so repeated runs over the
// same (provider, locale, year, category) do not hit the network again.
// The cache is advisory: a miss, a corrupt entry or an expired entry only
// costs a request.
package cache

import (
	"fmt"
	"regexp"
	"time"

	"calgen/internal/models"
	"calgen/internal/provider"
)

// Key identifies one cached batch.
type Key struct {
	Provider string
	Locale   string
	Year     int
	Category models.Category
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.Provider, k.Locale, k.Year, k.Category)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileName returns a filesystem-safe name for k.
func (k Key) fileName() string {
	return fmt.Sprintf("api_cache_%s_%s_%d_%s.json",
		unsafeChars.ReplaceAllString(k.Provider, "_"),
		unsafeChars.ReplaceAllString(k.Locale, "_"),
		k.Year,
		unsafeChars.ReplaceAllString(string(k.Category), "_"),
	)
}

// Entry is the persisted form of one cached batch.
type Entry struct {
	Key       string               `json:"key"`
	FetchedAt time.Time            `json:"fetched_at"`
	Records   []provider.RawRecord `json:"records"`
}

// Store abstracts the cache backend.
type Store interface {
	// Get returns the cached records and true on a fresh hit.
	Get(key Key) ([]provider.RawRecord, bool, error)
	Put(key Key, records []provider.RawRecord) error
	Close() error
}

// fresh reports whether an entry fetched at fetchedAt is still usable.
// A zero maxAge means entries never expire.
func fresh(fetchedAt, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return now.Sub(fetchedAt) <= maxAge
}
