// Package metadata resolves a book's folder-derived name into a bibliographic
// record and persists it as an audiobookshelf metadata.json document.
//
// Resolution walks an explicit chain of Source adapters. The catalog source
// (Google Books) is tried first and the generative source (an
// OpenAI-compatible chat endpoint) second; the first record whose title is
// not the Unknown sentinel wins. Adapter failures are reported as
// *SourceError values, logged at the resolver boundary and never returned to
// the caller. An optional lookupcache.Store short-circuits repeated lookups.
//
// Every generative call is followed by the configured cooldown, applied in a
// deferred sleep that honours context cancellation.
package metadata
