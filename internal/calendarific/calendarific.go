package calendarific

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
	// DefaultEndpoint is the Calendarific v2 holidays endpoint.
	DefaultEndpoint = "https://calendarific.com/api/v2/holidays"
	name            = "calendarific"
)

// locales supported by this adapter. See https://calendarific.com/supported-countries
var locales = provider.LocaleSet{"AU", "CA", "DE", "FR", "GB", "IE", "MX", "NZ", "US"}

// Client queries Calendarific, which classifies holidays by the type requested.
type Client struct {
	apiKey string
	api    *provider.JSONClient
	logger *slog.Logger
}

// NewClient creates a Calendarific adapter. A nil httpClient uses provider.NewHTTPClient.
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
			RecordsPath: []string{"response", "holidays"},
			DetailPath:  []string{"meta", "error_detail"},
		},
	}
}

func (c *Client) Name() string        { return name }
func (c *Client) Attribution() string { return "Holiday data provided by Calendarific (https://calendarific.com)" }
func (c *Client) Locales() []string   { return append([]string(nil), locales...) }

func (c *Client) Supports(locale string) bool { return locales.Contains(locale) }

// Query fetches one (country, year, type) batch.
func (c *Client) Query(ctx context.Context, req provider.Request) ([]provider.RawRecord, error) {
	if err := locales.Check(name, req.Locale); err != nil {
		return nil, err
	}

	// Options go first so they cannot replace the request's own parameters.
	params := url.Values{}
	for k, v := range req.Options {
		params.Set(k, v)
	}
	params.Set("api_key", c.apiKey)
	params.Set("country", req.Locale)
	params.Set("year", strconv.Itoa(req.Year))
	params.Set("type", string(req.Category))

	c.logger.Debug("Querying Calendarific", "request", req.String())
	return c.api.Get(ctx, params)
}

// Normalize converts one Calendarific holiday. The category is the one the
// batch was requested with, since Calendarific filters server-side by type.
func (c *Client) Normalize(rec provider.RawRecord, year int, category models.Category) (models.Event, error) {
	id, ok := rec.FirstString([]string{"urlid"}, []string{"id"})
	if !ok {
		return models.Event{}, provider.Skip("urlid", "missing")
	}

	date, err := rec.Date("date", "iso")
	if err != nil {
		// Some mirrors flatten the date object.
		date, err = rec.Date("date")
	}
	if err != nil {
		return models.Event{}, provider.Skip("date", err.Error())
	}

	title, _ := rec.String("name")
	description, _ := rec.String("description")

	return models.Event{
		UniqueID:    id,
		Name:        title,
		Description: description,
		Date:        date,
		Category:    category,
		Year:        year,
	}, nil
}
