package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

// Headers mimicking a real browser; Substack answers 403 to anything else.
const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// rss2json reports pubDate in this layout.
const proxyPubDateLayout = "2006-01-02 15:04:05"

// Fetcher retrieves the current feed snapshot, either through an
// RSS-to-JSON proxy or directly from the feed itself when proxyURL is
// empty. No retry is performed; a failure ends the invocation.
type Fetcher struct {
	client   *http.Client
	parser   *gofeed.Parser
	proxyURL string
	feedURL  string
	log      *slog.Logger
}

func NewFetcher(proxyURL, feedURL string, timeout time.Duration, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		parser:   gofeed.NewParser(),
		proxyURL: strings.TrimSpace(proxyURL),
		feedURL:  strings.TrimSpace(feedURL),
		log:      log,
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]models.Entry, error) {
	if f.proxyURL == "" {
		return f.fetchDirect(ctx)
	}

	return f.fetchProxy(ctx)
}

type proxyResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Items   []proxyItem `json:"items"`
}

type proxyItem struct {
	GUID        string `json:"guid"`
	Link        string `json:"link"`
	Title       string `json:"title"`
	PubDate     string `json:"pubDate"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

func (f *Fetcher) fetchProxy(ctx context.Context) ([]models.Entry, error) {
	requestURL := f.proxyURL + "?rss_url=" + url.QueryEscape(f.feedURL)

	body, err := f.get(ctx, requestURL, nil)
	if err != nil {
		return nil, err
	}

	var resp proxyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode proxy response: %w", models.ErrParse, err)
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: proxy status %q: %s",
			models.ErrParse, resp.Status, resp.Message)
	}

	entries := make([]models.Entry, 0, len(resp.Items))
	for _, item := range resp.Items {
		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		var publishedAt time.Time
		if t, parseErr := time.Parse(proxyPubDateLayout, item.PubDate); parseErr == nil {
			publishedAt = t
		} else if item.PubDate != "" {
			f.log.WarnContext(ctx, "Failed to parse pubDate",
				"pubDate", item.PubDate,
				"itemID", id)
		}

		entries = append(entries, models.Entry{
			ID:          id,
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Content:     content,
			PublishedAt: publishedAt,
		})
	}

	return entries, nil
}

func (f *Fetcher) fetchDirect(ctx context.Context) ([]models.Entry, error) {
	headers := map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          browserAccept,
		"Accept-Language": "en-US,en;q=0.5",
	}

	body, err := f.get(ctx, f.feedURL, headers)
	if err != nil {
		return nil, err
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", models.ErrParse, err)
	}

	entries := make([]models.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		entries = append(entries, models.Entry{
			ID:          id,
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Content:     content,
			PublishedAt: publishedAt,
		})
	}

	return entries, nil
}

func (f *Fetcher) get(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", models.ErrFetch, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFetch, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.log.WarnContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", requestURL)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status code %d",
			models.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", models.ErrFetch, err)
	}

	return body, nil
}
