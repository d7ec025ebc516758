// Package generator drives a generation run: it fetches every (locale, year,
// category) combination in order, merges in mixin events, assembles one
// calendar per locale, publishes it and finally rewrites the manifest.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calgen/internal/cache"
	"calgen/internal/calendar"
	"calgen/internal/manifest"
	"calgen/internal/metrics"
	"calgen/internal/mixin"
	"calgen/internal/models"
	"calgen/internal/provider"
	"calgen/internal/publish"
)

var (
	ErrNoLocales         = errors.New("no locales configured")
	ErrDuplicateCode     = errors.New("locale listed twice")
	ErrDuplicateFileName = errors.New("locales share an output file")
)

// Options tunes a Generator. Zero values select the defaults noted per field.
type Options struct {
	// Years is the forward window length, starting at the current year. Default 1.
	Years int
	// Categories fetched per year. Default national and observance.
	Categories []models.Category
	// Pacing is slept between network requests. Zero disables pacing.
	Pacing time.Duration
	// Cache is consulted before the network when set.
	Cache cache.Store
	// Mixins supplies supplemental events. Default none.
	Mixins *mixin.Supplementer
	// Announcer receives the manifest after it is published, when set.
	Announcer manifest.Announcer
	// Metrics counts the run, when set. MetricsFile is written at the end of every run.
	Metrics     *metrics.Registry
	MetricsFile string
	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(context.Context, time.Duration) error
}

// Result summarizes a finished run.
type Result struct {
	StartYear int
	EndYear   int
	Manifest  []manifest.Entry
	Events    int
}

// Generator produces calendars from one provider into one sink.
type Generator struct {
	provider provider.Provider
	sink     publish.Sink
	logger   *slog.Logger
	opts     Options
}

// New creates a Generator.
func New(logger *slog.Logger, p provider.Provider, sink publish.Sink, opts Options) *Generator {
	if opts.Years < 1 {
		opts.Years = 1
	}
	if len(opts.Categories) == 0 {
		opts.Categories = []models.Category{models.CategoryNational, models.CategoryObservance}
	}
	if opts.Mixins == nil {
		opts.Mixins = mixin.None()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Generator{provider: p, sink: sink, logger: logger, opts: opts}
}

// Validate reports configuration errors that must stop a run before any
// network activity: an empty locale set, a repeated code, two names that map
// to the same output file, or a locale the provider does not serve.
func (g *Generator) Validate(locales []models.Locale) error {
	if len(locales) == 0 {
		return ErrNoLocales
	}
	seen := make(map[string]bool, len(locales))
	files := make(map[string]string, len(locales))
	for _, l := range locales {
		if seen[l.Code] {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, l.Code)
		}
		seen[l.Code] = true

		name := calendar.FileName(l)
		if other, ok := files[name]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateFileName, other, l.Code, name)
		}
		files[name] = l.Code
		if !g.provider.Supports(l.Code) {
			return fmt.Errorf("locale %s (%s): %w", l.Code, l.Name,
				&provider.UnsupportedLocaleError{Provider: g.provider.Name(), Locale: l.Code})
		}
	}
	return nil
}

// Run generates and publishes one calendar per locale, in order, followed by
// the manifest. A run-fatal error stops the run before the failing locale's
// calendar is published; calendars published earlier are left in place and the
// manifest is not rewritten.
func (g *Generator) Run(ctx context.Context, locales []models.Locale) (*Result, error) {
	if err := g.Validate(locales); err != nil {
		return nil, err
	}

	started := g.opts.Now()
	defer g.finish(started)

	startYear := started.Year()
	endYear := startYear + g.opts.Years - 1
	assembler := calendar.Assembler{
		Attribution: g.provider.Attribution(),
		StartYear:   startYear,
		EndYear:     endYear,
	}
	fetcher := &Fetcher{
		provider: g.provider,
		logger:   g.logger,
		cache:    g.opts.Cache,
		metrics:  g.opts.Metrics,
		pacing:   g.opts.Pacing,
		sleep:    g.opts.Sleep,
	}

	g.logger.Info("Starting generation run.", "provider", g.provider.Name(), "locales", len(locales), "years", manifest.YearSpan(startYear, endYear))

	result := &Result{StartYear: startYear, EndYear: endYear, Manifest: make([]manifest.Entry, 0, len(locales))}
	for _, locale := range locales {
		fetched, err := g.fetchLocale(ctx, fetcher, locale, startYear, endYear)
		if err != nil {
			return nil, err
		}

		doc, entry := assembler.Assemble(locale, fetched, g.opts.Mixins.Events(locale, startYear))
		data, err := doc.Bytes(g.opts.Now())
		if err != nil {
			return nil, err
		}
		if err := g.sink.Put(ctx, entry.Path, data); err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", entry.Path, err)
		}

		g.logger.Info("Wrote calendar.", "locale", locale.Code, "path", entry.Path, "events", len(doc.Events))
		result.Manifest = append(result.Manifest, entry)
		result.Events += len(doc.Events)
		if g.opts.Metrics != nil {
			g.opts.Metrics.DocumentsWritten.Inc()
			g.opts.Metrics.EventsEmitted.Add(float64(len(doc.Events)))
		}
	}

	if err := g.publishManifest(ctx, result.Manifest); err != nil {
		return nil, err
	}
	if g.opts.Metrics != nil {
		g.opts.Metrics.LastSuccess.Set(float64(g.opts.Now().Unix()))
	}
	g.logger.Info("Generation run finished.", "documents", len(result.Manifest), "events", result.Events)
	return result, nil
}

// fetchLocale exhausts every year and category of one locale.
func (g *Generator) fetchLocale(ctx context.Context, f *Fetcher, locale models.Locale, startYear, endYear int) ([]models.Event, error) {
	var events []models.Event
	for year := startYear; year <= endYear; year++ {
		for _, category := range g.opts.Categories {
			req := provider.Request{Locale: locale.Code, Year: year, Category: category}
			got, err := f.Fetch(ctx, req)
			if err != nil {
				return nil, err
			}
			events = append(events, got...)
		}
	}
	return events, nil
}

func (g *Generator) publishManifest(ctx context.Context, entries []manifest.Entry) error {
	data, err := manifest.Encode(entries)
	if err != nil {
		return err
	}
	if err := g.sink.Put(ctx, manifest.FileName, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", manifest.FileName, err)
	}
	g.logger.Info("Wrote manifest.", "path", manifest.FileName, "entries", len(entries))

	if g.opts.Announcer != nil {
		if err := g.opts.Announcer.Announce(ctx, data); err != nil {
			g.logger.Warn("Could not announce manifest", "error", err)
		}
	}
	return nil
}

// finish records the run duration and exports metrics, whatever the outcome.
func (g *Generator) finish(started time.Time) {
	if g.opts.Metrics == nil {
		return
	}
	g.opts.Metrics.RunSeconds.Set(g.opts.Now().Sub(started).Seconds())
	if g.opts.MetricsFile == "" {
		return
	}
	if err := g.opts.Metrics.WriteTextfile(g.opts.MetricsFile); err != nil {
		g.logger.Warn("Could not write metrics", "file", g.opts.MetricsFile, "error", err)
	}
}
