package holidayapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"calgen/internal/models"
	"calgen/internal/provider"
)

const (
	// DefaultEndpoint is the HolidayAPI v1 holidays endpoint.
	DefaultEndpoint = "https://holidayapi.com/v1/holidays"
	name            = "holidayapi"
)

var locales = provider.LocaleSet{"AU", "CA", "DE", "FR", "GB", "IE", "MX", "NZ", "US"}

// Client queries HolidayAPI. Records carry a boolean "public" flag instead of
// a category, so one upstream call serves both the national and the observance pass.
type Client struct {
	apiKey string
	api    *provider.JSONClient
	logger *slog.Logger
}

// NewClient creates a HolidayAPI adapter. A nil httpClient uses provider.NewHTTPClient.
func NewClient(logger *slog.Logger, apiKey, endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	return &Client{
		apiKey: apiKey,
		logger: logger,
		api: &provider.JSONClient{
			Provider:    name,
			BaseURL:     endpoint,
			HTTPClient:  httpClient,
			RecordsPath: []string{"holidays"},
			DetailPath:  []string{"error"},
		},
	}
}

func (c *Client) Name() string        { return name }
func (c *Client) Attribution() string { return "Holiday data provided by Holiday API (https://holidayapi.com)" }
func (c *Client) Locales() []string   { return append([]string(nil), locales...) }

func (c *Client) Supports(locale string) bool { return locales.Contains(locale) }

// Query fetches the holidays of one country and year and keeps the records
// whose public flag maps onto req.Category.
func (c *Client) Query(ctx context.Context, req provider.Request) ([]provider.RawRecord, error) {
	if err := locales.Check(name, req.Locale); err != nil {
		return nil, err
	}
	if req.Category != models.CategoryNational && req.Category != models.CategoryObservance {
		c.logger.Debug("HolidayAPI has no records for category", "category", req.Category)
		return nil, nil
	}

	// Options go first so they cannot replace the request's own parameters.
	params := url.Values{}
	for k, v := range req.Options {
		params.Set(k, v)
	}
	params.Set("key", c.apiKey)
	params.Set("country", req.Locale)
	params.Set("year", strconv.Itoa(req.Year))

	c.logger.Debug("Querying HolidayAPI", "request", req.String())
	records, err := c.api.Get(ctx, params)
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, rec := range records {
		if categoryOf(rec) == req.Category {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// Normalize converts one HolidayAPI holiday. The category argument is ignored;
// it is derived from the record's public flag.
func (c *Client) Normalize(rec provider.RawRecord, year int, _ models.Category) (models.Event, error) {
	id, ok := rec.String("uuid")
	if !ok || id == "" {
		return models.Event{}, provider.Skip("uuid", "missing")
	}
	date, err := rec.Date("date")
	if err != nil {
		return models.Event{}, provider.Skip("date", err.Error())
	}
	title, _ := rec.String("name")

	return models.Event{
		UniqueID: id,
		Name:     title,
		Date:     date,
		Category: categoryOf(rec),
		Year:     year,
	}, nil
}

func categoryOf(rec provider.RawRecord) models.Category {
	if public, ok := rec.Bool("public"); ok && public {
		return models.CategoryNational
	}
	return models.CategoryObservance
}
