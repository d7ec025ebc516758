package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 10 << 20
	userAgent      = "calgen/1.0"
)

// userAgentTransport adds the client identification header to each request.
type userAgentTransport struct {
	UserAgent string
	Transport http.RoundTripper
}

// RoundTrip adds the User-Agent header and delegates to the wrapped transport.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.UserAgent)
	req.Header.Set("Accept", "application/json")
	return t.Transport.RoundTrip(req)
}

// NewHTTPClient returns the HTTP client adapters use by default.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultTimeout,
		Transport: &userAgentTransport{
			UserAgent: userAgent,
			Transport: http.DefaultTransport,
		},
	}
}

// JSONClient fetches a JSON envelope and extracts the list of holiday records from it.
type JSONClient struct {
	Provider   string
	BaseURL    string
	HTTPClient *http.Client
	// RecordsPath locates the record list in a successful envelope, e.g. response.holidays.
	RecordsPath []string
	// DetailPath locates the human-readable error text in an error envelope.
	DetailPath []string
}

// Get issues a GET with params and returns the records found at RecordsPath.
func (c *JSONClient) Get(ctx context.Context, params url.Values) ([]RawRecord, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base url: %w", c.Provider, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", c.Provider, err)
	}

	client := c.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.Provider, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Provider:   c.Provider,
			StatusCode: resp.StatusCode,
			Detail:     c.detail(body),
		}
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &MalformedPayloadError{Provider: c.Provider, Path: strings.Join(c.RecordsPath, ".")}
	}

	list, ok := RawRecord(envelope).Lookup(c.RecordsPath...)
	items, isList := list.([]any)
	if !ok || !isList {
		return nil, &MalformedPayloadError{Provider: c.Provider, Path: strings.Join(c.RecordsPath, ".")}
	}
	return Records(items), nil
}

// detail extracts the provider's error text from an error body, if it is JSON.
func (c *JSONClient) detail(body []byte) string {
	if len(c.DetailPath) == 0 {
		return ""
	}
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	s, _ := RawRecord(envelope).String(c.DetailPath...)
	return s
}

// redactURLError strips the query string (which carries the API key) from transport errors.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	redacted := *uerr
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		redacted.URL = u.String()
	} else {
		redacted.URL = "(redacted)"
	}
	return &redacted
}
