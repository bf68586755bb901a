// Package notifications pushes run milestones to ntfy.
//
// The topic comes from config.toml (or SHELFSORT_NTFY_TOPIC). With no topic
// configured NewService returns a no-op implementation, so workflow code can
// call the Service interface unconditionally.
package notifications
