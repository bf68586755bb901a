// Package library commits resolved books into the final Author/Title tree.
//
// Placer moves a staging folder's audio into its book directory, asks the
// cover resolver for artwork, derives chapters from file durations and writes
// metadata.json. Books that end without a cover are relocated under the
// no-cover quarantine directory. Folders whose metadata could not be resolved
// go to the unclassified directory untouched.
package library
