// Package logging assembles structured slog loggers and formatting helpers used
// across shelfsort.
//
// It owns the console and JSON handlers, tees every record into the persistent
// log file, and exposes context-aware helpers so pipeline code can tag lines
// with the book, stage and run id. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
