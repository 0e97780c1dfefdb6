package models

import "time"

// Entry is one feed item, newest-first as reported by the feed.
type Entry struct {
	ID          string
	Title       string
	Link        string
	Content     string
	PublishedAt time.Time
}

// State is the persisted marker of the most recently notified post.
type State struct {
	LastSeenID      string `json:"lastSeenId"`
	LastPublishedAt string `json:"lastPublishedAt,omitempty"`
}

// Match is a booking link found in post content.
type Match struct {
	Platform string
	URL      string
}
