// Package provider defines the capability every upstream holiday API adapter
// implements, plus the helpers adapters share: defensive raw-record access,
// a JSON-over-HTTP client and the error types the generator classifies.
package provider

import (
	"context"
	"fmt"

	"calgen/internal/models"
)

// Request identifies one batch query against a provider.
type Request struct {
	Locale   string
	Year     int
	Category models.Category
	// Options carries non-standard parameters some providers need, sent as extra query parameters.
	Options map[string]string
}

func (r Request) String() string {
	return fmt.Sprintf("%s/%d/%s", r.Locale, r.Year, r.Category)
}

// Provider translates one external API into canonical events.
type Provider interface {
	// Name is the short identifier used in logs, cache keys and configuration.
	Name() string
	// Attribution is the credit line recorded in the manifest.
	Attribution() string
	// Locales lists the locale codes the provider accepts.
	Locales() []string
	// Supports reports whether locale is in the provider's allow-list.
	Supports(locale string) bool
	// Query fetches the raw records for one locale, year and category.
	// It returns an *UnsupportedLocaleError without touching the network when
	// the locale is not supported.
	Query(ctx context.Context, req Request) ([]RawRecord, error)
	// Normalize converts one raw record into an event, or returns a *SkipError.
	Normalize(rec RawRecord, year int, category models.Category) (models.Event, error)
}

// LocaleSet is an adapter-owned allow-list of locale codes.
type LocaleSet []string

// Contains reports whether code is in the set.
func (s LocaleSet) Contains(code string) bool {
	for _, c := range s {
		if c == code {
			return true
		}
	}
	return false
}

// Check returns an *UnsupportedLocaleError when code is not in the set.
func (s LocaleSet) Check(providerName, code string) error {
	if !s.Contains(code) {
		return &UnsupportedLocaleError{Provider: providerName, Locale: code}
	}
	return nil
}
