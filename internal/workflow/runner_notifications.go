package workflow

import (
	"context"
	"errors"
	"log/slog"

	"shelfsort/internal/logging"
	"shelfsort/internal/notifications"
)

func (r *Runner) notifyStarted(ctx context.Context, logger *slog.Logger, source string, items int) {
	r.deliver(logger, "run start", r.notifier.NotifyRunStarted(ctx, source, items))
}

func (r *Runner) notifyCompleted(ctx context.Context, logger *slog.Logger, summary RunSummary) {
	report := notifications.RunReport{
		Source:       summary.Source,
		Placed:       summary.Placed,
		Quarantined:  summary.Quarantined,
		Unclassified: summary.Unclassified,
		Failed:       summary.Failed,
		Remaining:    len(summary.Remaining),
		StagingPath:  summary.StagingPath,
		Duration:     summary.Elapsed,
	}
	r.deliver(logger, "run summary", r.notifier.NotifyRunCompleted(ctx, report))
	r.deliver(logger, "missing covers", r.notifier.NotifyBooksWithoutCover(ctx, summary.NoCover))
}

func (r *Runner) notifyError(ctx context.Context, logger *slog.Logger, runErr error, label string) {
	if runErr == nil || errors.Is(runErr, context.Canceled) {
		return
	}
	r.deliver(logger, "error", r.notifier.NotifyError(context.WithoutCancel(ctx), runErr, label))
}

func (r *Runner) deliver(logger *slog.Logger, kind string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("run cancelled, notification not sent", logging.String("notification", kind))
		return
	}
	logger.Debug("notification failed", logging.String("notification", kind), logging.Error(err))
}
