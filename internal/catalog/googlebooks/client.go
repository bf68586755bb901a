package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"shelfsort/internal/catalog"
)

// VolumeInfo is the subset of a Google Books volume shelfsort reads.
type VolumeInfo struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"publishedDate"`
	Categories    []string `json:"categories"`
}

// Year returns the part of the published date before the first dash.
func (v VolumeInfo) Year() string {
	year, _, _ := strings.Cut(strings.TrimSpace(v.PublishedDate), "-")
	return year
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

// Client searches Google Books.
type Client struct {
	fetcher *catalog.Fetcher
	baseURL string
	apiKey  string
}

// New creates a Google Books client. apiKey is optional.
func New(fetcher *catalog.Fetcher, baseURL, apiKey string) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("googlebooks: fetcher required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("googlebooks: base url required")
	}
	return &Client{fetcher: fetcher, baseURL: baseURL, apiKey: strings.TrimSpace(apiKey)}, nil
}

// Search returns the first volume matching query, or catalog.ErrNoResults.
func (c *Client) Search(ctx context.Context, query string) (VolumeInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return VolumeInfo{}, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var payload volumesResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL, params, &payload); err != nil {
		return VolumeInfo{}, fmt.Errorf("google books search: %w", err)
	}
	if len(payload.Items) == 0 {
		return VolumeInfo{}, fmt.Errorf("google books %q: %w", query, catalog.ErrNoResults)
	}
	return payload.Items[0].VolumeInfo, nil
}
