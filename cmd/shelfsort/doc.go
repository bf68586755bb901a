// Package main hosts the shelfsort CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the internal
// packages: organize runs the staging and placement workflow, tag and covers
// maintain a finished library, and the remaining commands cover inventory,
// known authors, staging inspection and configuration scaffolding. Config
// and logger construction live in the shared command context so subcommands
// only deal with flags and output.
package main
