// Package openlibrary searches Open Library for cover ids. It is the
// secondary cover source consulted when the primary artwork fails the quality
// gate.
package openlibrary
