// Package preflight provides readiness checks for the filesystem paths and
// external services shelfsort depends on.
//
// These checks run in two contexts:
//   - workflow.Run calls CheckRun before staging anything. A failing
//     directory check aborts the run while the source is still untouched.
//   - The CLI "shelfsort status" command calls RunAll to display the health
//     of the configured directories, catalog endpoints and the LLM.
//
// Checks for optional features are skipped when the feature is disabled.
package preflight
