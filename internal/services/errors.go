package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome classifies how the pipeline should treat a failed book.
type Outcome string

const (
	// OutcomeUnclassified sends the folder to the unclassified root.
	OutcomeUnclassified Outcome = "unclassified"
	// OutcomeFailed leaves the folder in staging for manual review.
	OutcomeFailed Outcome = "failed"
	// OutcomeInterrupted leaves the folder in staging and stops the run.
	OutcomeInterrupted Outcome = "interrupted"
)

// FailureOutcome maps a per-book error to the action the workflow should take.
// Missing metadata is not a failure of the run; everything else keeps the book
// in staging so nothing is moved on a partial error.
func FailureOutcome(err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled):
		return OutcomeInterrupted
	case errors.Is(err, ErrNotFound):
		return OutcomeUnclassified
	default:
		return OutcomeFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
