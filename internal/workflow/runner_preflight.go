package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"shelfsort/internal/logging"
	"shelfsort/internal/preflight"
	"shelfsort/internal/services"
)

// runPreflightChecks validates the directories a run will touch. It returns
// nil when all checks pass, or an error describing all failures.
func runPreflightChecks(logger *slog.Logger, source, dest string) error {
	var failures []string
	for _, r := range preflight.CheckRun(source, dest) {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and run again"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "check directories", strings.Join(failures, "; "), nil)
	}
	return nil
}
