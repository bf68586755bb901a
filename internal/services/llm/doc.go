// Package llm provides an OpenRouter-style chat client used as the generative
// fallback when catalog lookups cannot identify a book.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title and
// timeout. When unconfigured, Complete returns ErrNotConfigured and callers
// treat the source as exhausted.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a single prompt, receive the text reply.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). Context cancellation aborts retries immediately. The per-book
// cooldown required by rate-limited providers is applied by the caller, not
// here.
package llm
