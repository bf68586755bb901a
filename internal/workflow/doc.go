// Package workflow runs one organize pass from a source directory into a
// library.
//
// Phase 1 takes the run lock and drains the source into a fresh staging root
// via staging.Organizer. Phase 2 walks the staged book folders one at a time:
// metadata is resolved, the book is placed (or sent to unclassified), and its
// tags are written inline unless tagging is disabled. Each book runs to
// completion; cancellation is honoured between books and leaves the staging
// root in place for the next run.
//
// Per-book errors never abort the run. They are counted in the RunSummary and
// the book stays in staging for manual review.
package workflow
