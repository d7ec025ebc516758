package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"calgen/internal/models"
	"calgen/internal/provider"
)

const (
	name = "google"
	// maxResults covers a full year of holidays and observances in one page.
	maxResults = 2500
)

// holidayCalendars maps locale codes to Google's public holiday calendar prefixes.
var holidayCalendars = map[string]string{
	"AU": "en.australian",
	"CA": "en.canadian",
	"DE": "en.german",
	"FR": "en.french",
	"GB": "en.uk",
	"IE": "en.irish",
	"MX": "en.mexican",
	"NZ": "en.new_zealand",
	"US": "en.usa",
}

// CalendarClient reads Google's public holiday calendars with an API key.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	locales provider.LocaleSet
}

// NewClient creates a Google Calendar holiday provider.
// Extra client options are appended after the API key, so tests can point the
// service at a local endpoint.
func NewClient(ctx context.Context, logger *slog.Logger, apiKey string, opts ...option.ClientOption) (*CalendarClient, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	locales := make(provider.LocaleSet, 0, len(holidayCalendars))
	for code := range holidayCalendars {
		locales = append(locales, code)
	}
	sort.Strings(locales)
	return &CalendarClient{service: service, logger: logger, locales: locales}, nil
}

func (c *CalendarClient) Name() string { return name }
func (c *CalendarClient) Attribution() string {
	return "Holiday data provided by Google Calendar public holiday calendars"
}
func (c *CalendarClient) Locales() []string           { return append([]string(nil), c.locales...) }
func (c *CalendarClient) Supports(locale string) bool { return c.locales.Contains(locale) }

// CalendarID returns the public holiday calendar for a locale.
func CalendarID(locale string) (string, bool) {
	prefix, ok := holidayCalendars[locale]
	if !ok {
		return "", false
	}
	return prefix + "#holiday@group.v.calendar.google.com", true
}

// Query lists one year of the locale's holiday calendar and keeps the events
// whose description maps onto req.Category.
func (c *CalendarClient) Query(ctx context.Context, req provider.Request) ([]provider.RawRecord, error) {
	calendarID, ok := CalendarID(req.Locale)
	if !ok {
		return nil, &provider.UnsupportedLocaleError{Provider: name, Locale: req.Locale}
	}

	tmin := time.Date(req.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	tmax := tmin.AddDate(1, 0, 0)

	c.logger.Debug("Fetching holiday calendar", "calendarID", calendarID, "request", req.String())
	events, err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin.Format(time.RFC3339)).
		TimeMax(tmax.Format(time.RFC3339)).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, toProviderError(err)
	}

	records := make([]provider.RawRecord, 0, len(events.Items))
	for _, item := range events.Items {
		rec, err := toRawRecord(item)
		if err != nil {
			c.logger.Warn("Could not decode holiday event", "calendarID", calendarID, "error", err)
			continue
		}
		if categoryOf(rec) == req.Category {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Normalize converts one holiday calendar event. Only all-day events carry a start date.
func (c *CalendarClient) Normalize(rec provider.RawRecord, year int, _ models.Category) (models.Event, error) {
	id, ok := rec.String("id")
	if !ok || id == "" {
		return models.Event{}, provider.Skip("id", "missing")
	}
	date, err := rec.Date("start", "date")
	if err != nil {
		return models.Event{}, provider.Skip("start.date", err.Error())
	}
	summary, _ := rec.String("summary")
	description, _ := rec.String("description")

	return models.Event{
		UniqueID:    id,
		Name:        summary,
		Description: description,
		Date:        date,
		Category:    categoryOf(rec),
		Year:        year,
	}, nil
}

// categoryOf reads Google's "Public holiday" / "Observance" description marker.
func categoryOf(rec provider.RawRecord) models.Category {
	description, _ := rec.String("description")
	if strings.HasPrefix(strings.ToLower(description), "public holiday") {
		return models.CategoryNational
	}
	return models.CategoryObservance
}

// toRawRecord converts a typed API event into the generic record form.
func toRawRecord(item *calendar.Event) (provider.RawRecord, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var rec provider.RawRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Error reasons Google reports for exhausted quota, sent with 403 or 429.
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
	"quotaExceeded":         true,
	"RATE_LIMIT_EXCEEDED":   true,
}

// Error reasons Google reports for a rejected API key, usually sent with 400.
var keyReasons = map[string]bool{
	"keyInvalid":      true,
	"keyExpired":      true,
	"API_KEY_INVALID": true,
	"API_KEY_EXPIRED": true,
}

// toProviderError maps Google API errors onto provider.StatusError. Google
// reports a bad API key as 400 and exhausted quota as 403, so those are
// rewritten to 401 and 429 to read like every other provider.
func toProviderError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &provider.StatusError{Provider: name, StatusCode: statusOf(gerr), Detail: gerr.Message}
	}
	return fmt.Errorf("%s: failed to retrieve events: %w", name, err)
}

func statusOf(gerr *googleapi.Error) int {
	reasons := make([]string, 0, len(gerr.Errors))
	for _, item := range gerr.Errors {
		reasons = append(reasons, item.Reason)
	}
	for _, detail := range gerr.Details {
		if info, ok := detail.(map[string]any); ok {
			if reason, ok := info["reason"].(string); ok {
				reasons = append(reasons, reason)
			}
		}
	}

	for _, reason := range reasons {
		switch {
		case keyReasons[reason]:
			return http.StatusUnauthorized
		case quotaReasons[reason]:
			return http.StatusTooManyRequests
		}
	}
	if gerr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(gerr.Message), "api key") {
		return http.StatusUnauthorized
	}
	return gerr.Code
}
