package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const proxyBody = `{
	"status": "ok",
	"items": [
		{
			"guid": "https://pintofviewclub.substack.com/p/post-42",
			"link": "https://pintofviewclub.substack.com/p/post-42",
			"title": "Post 42",
			"pubDate": "2024-03-01 18:30:00",
			"content": "<p>Book here: <a href=\"https://www.eventbrite.com/e/abc123\">tickets</a></p>",
			"description": "short"
		},
		{
			"guid": "",
			"link": "https://pintofviewclub.substack.com/p/post-41",
			"title": "Post 41",
			"pubDate": "not-a-date",
			"content": "",
			"description": "description only"
		}
	]
}`

func TestFetcherProxySuccess(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(proxyBody))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "https://pintofviewclub.substack.com/feed.xml",
		time.Second, testLogger())

	entries, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	newest := entries[0]
	if newest.ID != "https://pintofviewclub.substack.com/p/post-42" {
		t.Fatalf("unexpected newest ID: %q", newest.ID)
	}
	if newest.Title != "Post 42" {
		t.Fatalf("unexpected title: %q", newest.Title)
	}

	want := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)
	if !newest.PublishedAt.Equal(want) {
		t.Fatalf("unexpected publishedAt: %v", newest.PublishedAt)
	}

	// GUID falls back to link, content falls back to description.
	if entries[1].ID != "https://pintofviewclub.substack.com/p/post-41" {
		t.Fatalf("expected link fallback for ID, got %q", entries[1].ID)
	}
	if entries[1].Content != "description only" {
		t.Fatalf("expected description fallback, got %q", entries[1].Content)
	}
	if !entries[1].PublishedAt.IsZero() {
		t.Fatalf("expected zero publishedAt for unparsable pubDate")
	}

	if gotURL != "/?rss_url=https%3A%2F%2Fpintofviewclub.substack.com%2Ffeed.xml" {
		t.Fatalf("unexpected request URL: %q", gotURL)
	}
}

func TestFetcherProxyNonSuccessStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "https://example.com/feed.xml", time.Second, testLogger())

	if _, err := f.Fetch(context.Background()); !errors.Is(err, models.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestFetcherProxyMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "https://example.com/feed.xml", time.Second, testLogger())

	if _, err := f.Fetch(context.Background()); !errors.Is(err, models.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestFetcherProxyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "feed unreachable"}`))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "https://example.com/feed.xml", time.Second, testLogger())

	if _, err := f.Fetch(context.Background()); !errors.Is(err, models.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Pint of View</title>
	<item>
		<title>Post 42</title>
		<link>https://pintofviewclub.substack.com/p/post-42</link>
		<guid>post-42</guid>
		<description>Book here: https://lu.ma/xyz</description>
		<pubDate>Fri, 01 Mar 2024 18:30:00 GMT</pubDate>
	</item>
</channel>
</rss>`

func TestFetcherDirectRSS(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	f := NewFetcher("", server.URL, time.Second, testLogger())

	entries, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID != "post-42" {
		t.Fatalf("unexpected ID: %q", entries[0].ID)
	}
	if entries[0].Content != "Book here: https://lu.ma/xyz" {
		t.Fatalf("unexpected content: %q", entries[0].Content)
	}

	if gotUserAgent != browserUserAgent {
		t.Fatalf("expected browser User-Agent, got %q", gotUserAgent)
	}
}

func TestFetcherDirectMalformedFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not a feed"))
	}))
	defer server.Close()

	f := NewFetcher("", server.URL, time.Second, testLogger())

	if _, err := f.Fetch(context.Background()); !errors.Is(err, models.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
