package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"calgen/internal/provider"
)

// Severity is how far a failed request's error reaches.
type Severity int

const (
	// Ignorable errors count as an empty result for the request.
	Ignorable Severity = iota
	// RequestFatal errors skip one (locale, year, category) combination.
	RequestFatal
	// RunFatal errors abort the whole run.
	RunFatal
)

func (s Severity) String() string {
	switch s {
	case Ignorable:
		return "ignorable"
	case RequestFatal:
		return "request-fatal"
	case RunFatal:
		return "run-fatal"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Classify maps a Query error onto its severity. Rules are checked in order:
// cancellation, 401 and 429 are run-fatal; a malformed envelope is ignorable;
// anything else skips the combination.
func Classify(err error) Severity {
	if err == nil {
		return Ignorable
	}
	if errors.Is(err, context.Canceled) {
		return RunFatal
	}

	var status *provider.StatusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case http.StatusUnauthorized, http.StatusTooManyRequests:
			return RunFatal
		default:
			return RequestFatal
		}
	}

	switch {
	case errors.Is(err, provider.ErrMalformedPayload):
		return Ignorable
	case errors.Is(err, provider.ErrCountryNotSupported):
		return RequestFatal
	default:
		return RequestFatal
	}
}

// FatalError aborts a run. It names the request that failed.
type FatalError struct {
	Request provider.Request
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("aborting run at locale %s, year %d, category %s: %v",
		e.Request.Locale, e.Request.Year, e.Request.Category, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
