// Package googlebooks queries the Google Books volumes API for the structured
// half of the metadata chain.
package googlebooks
