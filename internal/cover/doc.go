// Package cover makes sure every book folder ends up with exactly one
// cover.jpg.
//
// Resolver tries an explicit chain of strategies and stops at the first that
// produces a cover: an image file shipped with the book, artwork embedded in
// the first audio file, then an external search. The external step queries
// iTunes for a large artwork and gates it on squareness and resolution; a
// candidate that fails the gate is only displaced by a better Open Library
// image. Downloads land in hidden temp files next to the destination and are
// promoted with a rename, so an existing cover is never replaced by a partial
// or worse image.
//
// Updater, Auditor and ExtractEmbedded are maintenance passes over a finished
// library.
package cover
