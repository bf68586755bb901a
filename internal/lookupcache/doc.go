// Package lookupcache persists resolved book metadata in SQLite, keyed by the
// folder-derived info string, so reruns over the same names skip external
// calls.
//
// The store follows the usual SQLite setup: WAL journaling, a busy timeout,
// and a short exponential retry around writes that hit SQLITE_BUSY. The schema
// is embedded and versioned; a mismatched database is reported rather than
// migrated.
package lookupcache
