package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shelfsort/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "cover", "download", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"cover", "download", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureOutcomeMapping(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "metadata", "resolve", "no result", nil)
	if got := services.FailureOutcome(notFound); got != services.OutcomeUnclassified {
		t.Fatalf("expected unclassified for not found, got %s", got)
	}
	transient := services.Wrap(services.ErrTransient, "library", "move", "copy failed", errors.New("io"))
	if got := services.FailureOutcome(transient); got != services.OutcomeFailed {
		t.Fatalf("expected failed for transient error, got %s", got)
	}
	cancelled := fmt.Errorf("resolve: %w", context.Canceled)
	if got := services.FailureOutcome(cancelled); got != services.OutcomeInterrupted {
		t.Fatalf("expected interrupted for cancellation, got %s", got)
	}
	if got := services.FailureOutcome(nil); got != services.OutcomeFailed {
		t.Fatalf("expected failed for nil error, got %s", got)
	}
}
