package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shelfsort/internal/config"
)

const userAgent = "shelfsort/0.1.0"

// RunReport is the subset of a run summary that notifications render.
type RunReport struct {
	Source       string
	Placed       int
	Quarantined  int
	Unclassified int
	Failed       int
	Remaining    int
	StagingPath  string
	Duration     time.Duration
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyRunStarted(ctx context.Context, source string, items int) error
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyBooksWithoutCover(ctx context.Context, paths []string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, source string, items int) error {
	data := payload{
		title:   "shelfsort - Run Started",
		message: fmt.Sprintf("Organizing %s (%d items)", strings.TrimSpace(source), items),
		tags:    []string{"shelfsort", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Placed %d books", report.Placed)
	if report.Quarantined > 0 {
		fmt.Fprintf(&builder, ", %d without cover", report.Quarantined)
	}
	if report.Unclassified > 0 {
		fmt.Fprintf(&builder, ", %d unclassified", report.Unclassified)
	}
	if report.Failed > 0 {
		fmt.Fprintf(&builder, ", %d failed", report.Failed)
	}
	fmt.Fprintf(&builder, " in %s", duration)
	if report.Remaining > 0 {
		fmt.Fprintf(&builder, "\n%d items remain in %s", report.Remaining, report.StagingPath)
	}

	title := "shelfsort - Run Complete"
	priority := ""
	if report.Failed > 0 || report.Remaining > 0 {
		title = "shelfsort - Run Complete (needs review)"
		priority = "high"
	}
	data := payload{
		title:    title,
		message:  builder.String(),
		tags:     []string{"shelfsort", "run", "completed"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBooksWithoutCover(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	lines := make([]string, 0, len(paths)+1)
	lines = append(lines, fmt.Sprintf("%d books need a cover:", len(paths)))
	for _, path := range paths {
		lines = append(lines, "- "+path)
	}
	data := payload{
		title:   "shelfsort - Missing Covers",
		message: strings.Join(lines, "\n"),
		tags:    []string{"shelfsort", "cover", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "shelfsort - Error",
		message:  builder.String(),
		tags:     []string{"shelfsort", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "shelfsort - Test",
		message:  "Notification system test",
		tags:     []string{"shelfsort", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error     { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunReport) error     { return nil }
func (noopService) NotifyBooksWithoutCover(context.Context, []string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
