// Package itunes searches the iTunes Search API for book artwork, the primary
// external cover source.
package itunes
