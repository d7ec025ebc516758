package provider

import (
	"errors"
	"fmt"
)

var (
	ErrCountryNotSupported = errors.New("country not supported")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrSkipRecord          = errors.New("record skipped")
)

// UnsupportedLocaleError is returned by Query for locales outside the adapter's allow-list.
type UnsupportedLocaleError struct {
	Provider string
	Locale   string
}

func (e *UnsupportedLocaleError) Error() string {
	return fmt.Sprintf("%s: country %q not supported", e.Provider, e.Locale)
}

func (e *UnsupportedLocaleError) Is(target error) bool {
	return target == ErrCountryNotSupported
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Provider   string
	StatusCode int
	// Detail is the provider-supplied error text, if any.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
}

// MalformedPayloadError is a successful response whose envelope lacks the records path.
type MalformedPayloadError struct {
	Provider string
	Path     string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s: response has no list at %q", e.Provider, e.Path)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// SkipError marks a single raw record that cannot be normalized.
type SkipError struct {
	Field  string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping record: %s %s", e.Field, e.Reason)
}

func (e *SkipError) Is(target error) bool {
	return target == ErrSkipRecord
}

// Skip builds a *SkipError for field.
func Skip(field, reason string) error {
	return &SkipError{Field: field, Reason: reason}
}
