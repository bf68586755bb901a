package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfsort/internal/config"
	"shelfsort/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Placed: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			send: func(s notifications.Service) error {
				return s.NotifyRunStarted(context.Background(), "/books/incoming", 4)
			},
			expectTitle:   "shelfsort - Run Started",
			expectMessage: "Organizing /books/incoming (4 items)",
			expectTags:    "shelfsort,run,started",
		},
		{
			name: "clean run",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), notifications.RunReport{Placed: 3, Quarantined: 1, Duration: 90 * time.Second})
			},
			expectTitle:   "shelfsort - Run Complete",
			expectMessage: "Placed 3 books, 1 without cover in 1m30s",
			expectTags:    "shelfsort,run,completed",
		},
		{
			name: "run with leftovers",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), notifications.RunReport{
					Placed:      1,
					Failed:      1,
					Remaining:   2,
					StagingPath: "/books/_shelfsort_staging_x",
					Duration:    time.Second,
				})
			},
			expectTitle:    "shelfsort - Run Complete (needs review)",
			expectMessage:  "Placed 1 books, 1 failed in 1s\n2 items remain in /books/_shelfsort_staging_x",
			expectTags:     "shelfsort,run,completed",
			expectPriority: "high",
		},
		{
			name: "missing covers",
			send: func(s notifications.Service) error {
				return s.NotifyBooksWithoutCover(context.Background(), []string{"_no_cover/A/B"})
			},
			expectTitle:   "shelfsort - Missing Covers",
			expectMessage: "1 books need a cover:\n- _no_cover/A/B",
			expectTags:    "shelfsort,cover,review",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("disk full"), "organize")
			},
			expectTitle:    "shelfsort - Error",
			expectMessage:  "Error with organize: disk full",
			expectTags:     "shelfsort,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestNoCoverNotificationSkipsEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).NotifyBooksWithoutCover(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}
