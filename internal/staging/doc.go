// Package staging drains a source directory into a per-run staging root.
//
// Loose audio and image files that share a base name are grouped into
// synthetic book folders, pre-existing folders are moved across unchanged,
// and files of any other kind stay where they are. The staging root lives
// beside the source directory so a crash never leaves books half inside the
// library. RunLock keeps two runs from draining the same source at once.
package staging
