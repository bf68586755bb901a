package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"shelfsort/internal/catalog"
)

type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		CoverID    int64    `json:"cover_i"`
	} `json:"docs"`
}

// Client queries the Open Library search API.
type Client struct {
	fetcher    *catalog.Fetcher
	searchURL  string
	coversURL  string
	maxResults int
}

// New creates an Open Library client. coversURL is the image root, for
// example https://covers.openlibrary.org/b/id.
func New(fetcher *catalog.Fetcher, searchURL, coversURL string, maxResults int) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("openlibrary: fetcher required")
	}
	searchURL = strings.TrimSpace(searchURL)
	coversURL = strings.TrimRight(strings.TrimSpace(coversURL), "/")
	if searchURL == "" || coversURL == "" {
		return nil, errors.New("openlibrary: search and covers urls required")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Client{fetcher: fetcher, searchURL: searchURL, coversURL: coversURL, maxResults: maxResults}, nil
}

// CoverURLs returns large cover image URLs for the best matches of title and
// author, in relevance order.
func (c *Client) CoverURLs(ctx context.Context, title, author string) ([]string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	params := url.Values{}
	params.Set("title", title)
	if author = strings.TrimSpace(author); author != "" {
		params.Set("author", author)
	}
	params.Set("fields", "title,author_name,cover_i")
	params.Set("limit", strconv.Itoa(c.maxResults))

	var payload searchResponse
	if err := c.fetcher.GetJSON(ctx, c.searchURL, params, &payload); err != nil {
		return nil, fmt.Errorf("open library search: %w", err)
	}
	var urls []string
	for _, doc := range payload.Docs {
		if doc.CoverID <= 0 {
			continue
		}
		urls = append(urls, c.CoverURL(doc.CoverID))
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("open library %q: %w", title, catalog.ErrNoResults)
	}
	return urls, nil
}

// CoverURL returns the large image URL for a cover id.
func (c *Client) CoverURL(id int64) string {
	return fmt.Sprintf("%s/%d-L.jpg", c.coversURL, id)
}
