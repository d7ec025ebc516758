package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"calgen/internal/cache"
	"calgen/internal/metrics"
	"calgen/internal/models"
	"calgen/internal/provider"
)

// Fetcher runs single (locale, year, category) requests against one provider.
// It is not safe for concurrent use.
type Fetcher struct {
	provider provider.Provider
	logger   *slog.Logger
	cache    cache.Store
	metrics  *metrics.Registry
	pacing   time.Duration
	sleep    func(context.Context, time.Duration) error

	// requested is set once a network request has gone out; pacing applies
	// only between network requests.
	requested bool
}

// Fetch returns the normalized events for req. Only run-fatal conditions are
// returned as errors, always as *FatalError; everything else is logged and
// yields zero or more events.
func (f *Fetcher) Fetch(ctx context.Context, req provider.Request) ([]models.Event, error) {
	records, ok := f.fromCache(req)
	if ok {
		f.count(metrics.OutcomeCached)
	} else {
		var err error
		records, err = f.query(ctx, req)
		if err != nil {
			return nil, err
		}
	}
	return f.normalize(req, records), nil
}

func (f *Fetcher) query(ctx context.Context, req provider.Request) ([]provider.RawRecord, error) {
	if f.requested && f.pacing > 0 {
		f.logger.Debug("Pacing before next request", "delay", f.pacing)
		if err := f.sleep(ctx, f.pacing); err != nil {
			return nil, &FatalError{Request: req, Err: err}
		}
	}
	f.requested = true

	f.logger.Info("Querying "+f.provider.Name(), "locale", req.Locale, "year", req.Year, "category", req.Category)
	records, err := f.provider.Query(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			f.count(metrics.OutcomeFatal)
			return nil, &FatalError{Request: req, Err: ctx.Err()}
		}
		attrs := append(requestAttrs(req), errorAttrs(err)...)
		switch Classify(err) {
		case RunFatal:
			f.count(metrics.OutcomeFatal)
			return nil, &FatalError{Request: req, Err: err}
		case RequestFatal:
			f.count(metrics.OutcomeSkipped)
			f.logger.Error("Request failed, skipping combination", attrs...)
			return nil, nil
		default:
			f.count(metrics.OutcomeMalformed)
			f.logger.Warn("Unexpected response shape, treating as empty", attrs...)
			return nil, nil
		}
	}

	f.count(metrics.OutcomeOK)
	f.toCache(req, records)
	return records, nil
}

func (f *Fetcher) normalize(req provider.Request, records []provider.RawRecord) []models.Event {
	events := make([]models.Event, 0, len(records))
	skipped := 0
	for _, rec := range records {
		ev, err := f.provider.Normalize(rec, req.Year, req.Category)
		if err != nil {
			skipped++
			f.logger.Debug("Skipping record", append(requestAttrs(req), "reason", err)...)
			continue
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		f.logger.Info("Skipped records without date or id", append(requestAttrs(req), "count", skipped)...)
		if f.metrics != nil {
			f.metrics.RecordsSkipped.Add(float64(skipped))
		}
	}
	return events
}

func (f *Fetcher) fromCache(req provider.Request) ([]provider.RawRecord, bool) {
	if f.cache == nil {
		return nil, false
	}
	records, ok, err := f.cache.Get(cacheKey(f.provider.Name(), req))
	if err != nil {
		f.logger.Warn("Cache read failed", append(requestAttrs(req), "error", err)...)
		return nil, false
	}
	if ok {
		f.logger.Debug("Using cached response", requestAttrs(req)...)
	}
	return records, ok
}

func (f *Fetcher) toCache(req provider.Request, records []provider.RawRecord) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(cacheKey(f.provider.Name(), req), records); err != nil {
		f.logger.Warn("Cache write failed", append(requestAttrs(req), "error", err)...)
	}
}

func (f *Fetcher) count(outcome string) {
	if f.metrics != nil {
		f.metrics.Request(f.provider.Name(), outcome)
	}
}

func cacheKey(providerName string, req provider.Request) cache.Key {
	return cache.Key{Provider: providerName, Locale: req.Locale, Year: req.Year, Category: req.Category}
}

func requestAttrs(req provider.Request) []any {
	return []any{"locale", req.Locale, "year", req.Year, "category", req.Category}
}

func errorAttrs(err error) []any {
	var status *provider.StatusError
	if errors.As(err, &status) {
		return []any{"status", status.StatusCode, "detail", status.Detail}
	}
	return []any{"error", err}
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
