// Package tagging writes container-native tags into the audio files of a
// finished library.
//
// A book is any directory holding metadata.json; its subdirectories are not
// visited. After every file of a book has been attempted, a zero-byte marker
// file is created or touched. Incremental runs skip books that already carry
// the marker, so re-running over a library performs no writes.
package tagging
