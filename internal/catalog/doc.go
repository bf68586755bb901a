// Package catalog holds the HTTP plumbing shared by the external metadata and
// cover image sources.
//
// A Fetcher wraps one http.Client and one token-bucket limiter so every
// request to Google Books, iTunes or Open Library is paced, decoded and error
// mapped the same way. The per-service clients live in subpackages.
package catalog
