package catalog

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

	"golang.org/x/time/rate"

	"shelfsort/internal/config"
)

// ErrNoResults is returned when a source answered but had nothing usable.
var ErrNoResults = errors.New("no results")

const (
	userAgent = "shelfsort (+https://github.com/shelfsort/shelfsort)"
	// maxDownloadBytes caps image downloads.
	maxDownloadBytes = 20 << 20
	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Fetcher issues paced GET requests.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// NewFetcher builds a fetcher allowing requestsPerSecond with a burst of one.
func NewFetcher(requestsPerSecond float64, timeout time.Duration, opts ...Option) *Fetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	f := &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFetcherFromConfig builds the fetcher described by the catalog section.
func NewFetcherFromConfig(cfg *config.Config, opts ...Option) *Fetcher {
	return NewFetcher(cfg.Catalog.RequestsPerSecond, cfg.CatalogTimeout(), opts...)
}

func (f *Fetcher) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	target := endpoint
	if len(params) > 0 {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		query := parsed.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		parsed.RawQuery = query.Encode()
		target = parsed.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	requestStart := time.Now()
	resp, err := f.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// GetJSON fetches endpoint with params and decodes the JSON body into out.
func (f *Fetcher) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := f.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Download copies the body at rawURL into w. Bodies over the download cap are
// rejected.
func (f *Fetcher) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := f.get(ctx, rawURL, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	if n > maxDownloadBytes {
		return n, fmt.Errorf("download exceeds %d bytes", maxDownloadBytes)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty body from %s: %w", rawURL, ErrNoResults)
	}
	return n, nil
}
