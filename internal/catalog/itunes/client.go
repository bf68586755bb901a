package itunes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"shelfsort/internal/catalog"
)

const (
	thumbnailSuffix = "100x100bb.jpg"
	fullSizeSuffix  = "1000x1000bb.jpg"
)

// Result is a single iTunes search hit.
type Result struct {
	TrackName     string `json:"trackName"`
	ArtistName    string `json:"artistName"`
	ArtworkURL100 string `json:"artworkUrl100"`
}

// ArtworkURL returns the 1000px variant of the result's artwork.
func (r Result) ArtworkURL() string {
	return UpscaleArtwork(r.ArtworkURL100)
}

// UpscaleArtwork rewrites a 100px artwork URL to its 1000px variant.
func UpscaleArtwork(raw string) string {
	return strings.Replace(raw, thumbnailSuffix, fullSizeSuffix, 1)
}

type searchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// Client queries the iTunes Search API.
type Client struct {
	fetcher *catalog.Fetcher
	baseURL string
	country string
}

// New creates an iTunes client.
func New(fetcher *catalog.Fetcher, baseURL, country string) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("itunes: fetcher required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("itunes: base url required")
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "US"
	}
	return &Client{fetcher: fetcher, baseURL: baseURL, country: country}, nil
}

// SearchBook returns the top ebook match for term.
func (c *Client) SearchBook(ctx context.Context, term string) (Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Result{}, errors.New("term must not be empty")
	}
	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "ebook")
	params.Set("entity", "ebook")
	params.Set("limit", "1")
	params.Set("country", c.country)

	var payload searchResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL, params, &payload); err != nil {
		return Result{}, fmt.Errorf("itunes search: %w", err)
	}
	for _, result := range payload.Results {
		if strings.TrimSpace(result.ArtworkURL100) != "" {
			return result, nil
		}
	}
	return Result{}, fmt.Errorf("itunes %q: %w", term, catalog.ErrNoResults)
}
