package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRenderBodyWithBookingLink(t *testing.T) {
	body := renderBody(Message{
		Subject:     "New Pint of View guest announced",
		Title:       "Post 42",
		Link:        "https://pintofviewclub.substack.com/p/post-42",
		BookingLink: "https://www.eventbrite.com/e/abc123",
		Platform:    "eventbrite",
		PublishedAt: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"New post published: Post 42",
		"Date: Fri, 01 Mar 2024 18:30:00 UTC",
		"Ticket link (eventbrite): https://www.eventbrite.com/e/abc123",
		"Post link: https://pintofviewclub.substack.com/p/post-42",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderBodyWithoutBookingLink(t *testing.T) {
	body := renderBody(Message{
		Title: "Post 42",
		Link:  "https://pintofviewclub.substack.com/p/post-42",
	})

	if !strings.Contains(body, "No specific booking link found.") {
		t.Fatalf("expected fallback note, got:\n%s", body)
	}
	if strings.Contains(body, "Ticket link:") {
		t.Fatalf("unexpected ticket link line:\n%s", body)
	}
	if strings.Contains(body, "Date:") {
		t.Fatalf("unexpected date line for zero time:\n%s", body)
	}
}

func TestSendDryRunSkipsSMTP(t *testing.T) {
	m := NewMailer(MailerConfig{
		Host:   "smtp.gmail.com",
		Port:   465,
		To:     "someone@example.com",
		DryRun: true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.Send(context.Background(), Message{Subject: "s", Title: "t"}); err != nil {
		t.Fatalf("dry run must not fail: %v", err)
	}
}
