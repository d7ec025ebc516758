package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" || t.Password != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "calgen/1.0")
	return t.Transport.RoundTrip(req)
}

// WebDAVSink uploads artifacts into a WebDAV collection, e.g. a Nextcloud
// folder or any server calendar apps can subscribe to over HTTP.
type WebDAVSink struct {
	client *webdav.Client
	logger *slog.Logger
	url    string
}

// NewWebDAVSink creates a sink for the collection at endpoint.
func NewWebDAVSink(logger *slog.Logger, endpoint, username, password string) (*WebDAVSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("webdav endpoint is empty")
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &customTransport{
			Username:  username,
			Password:  password,
			Transport: http.DefaultTransport,
		},
	}

	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &WebDAVSink{client: client, logger: logger, url: endpoint}, nil
}

// Put uploads data as name relative to the collection.
func (s *WebDAVSink) Put(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.logger.Debug("Uploading artifact to WebDAV", "name", name, "bytes", len(data))

	writer, err := s.client.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create %s on WebDAV server: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	// Close waits for the server's response to the PUT.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	s.logger.Info("Uploaded artifact to WebDAV", "name", name, "url", s.url)
	return nil
}
