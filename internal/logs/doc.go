// Package logs reads the shelfsort JSON log file for `shelfsort logs`.
//
// Tail returns the last N matching lines or everything after an offset, and
// Follow keeps polling until its context ends. Lines are matched against a
// Filter on the structured fields every record carries (level, component,
// book, run id); lines that are not JSON only match an empty filter.
package logs
