package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

// Pattern is one known booking-platform URL marker. Patterns are evaluated
// in declaration order: the first pattern that matches any candidate wins,
// and within a pattern the earliest candidate in the content wins.
type Pattern struct {
	Platform string
	Marker   string
}

var bookingPatterns = []Pattern{
	{Platform: "eventbrite", Marker: "eventbrite"},
	{Platform: "ticketing", Marker: "ticket"},
	{Platform: "luma", Marker: "lu.ma"},
	{Platform: "resident-advisor", Marker: "ra.co"},
	{Platform: "razorpay", Marker: "razorpay.com"},
	{Platform: "bookmyshow", Marker: "bookmyshow"},
	{Platform: "keyword-book", Marker: "book"},
	{Platform: "keyword-rsvp", Marker: "rsvp"},
	{Platform: "keyword-register", Marker: "register"},
}

var socialHosts = []string{
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"linkedin.com",
}

type Extractor struct {
	patterns []Pattern
	urlRe    *regexp.Regexp
	selfHost string
}

// New creates an extractor. selfHost is the watched publication's own host;
// links back to it are never booking links.
func New(selfHost string) *Extractor {
	return &Extractor{
		patterns: bookingPatterns,
		urlRe:    xurls.Strict(),
		selfHost: strings.ToLower(strings.TrimSpace(selfHost)),
	}
}

// BookingLink scans post content for a booking link under pattern-priority
// order. Absence of a match is not an error; the caller falls back to the
// post's own link.
func (e *Extractor) BookingLink(content string) (models.Match, bool) {
	candidates := e.candidates(content)

	for _, p := range e.patterns {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), p.Marker) {
				return models.Match{Platform: p.Platform, URL: c}, true
			}
		}
	}

	return models.Match{}, false
}

// candidates returns candidate URLs in document order: anchor hrefs when the
// content is HTML, otherwise URLs found in the raw text.
func (e *Extractor) candidates(content string) []string {
	var links []string
	anchors := 0

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok {
				return
			}
			anchors++

			href = strings.TrimSpace(href)
			if href != "" && !e.excluded(href) {
				links = append(links, href)
			}
		})
	}

	if anchors > 0 {
		return links
	}

	for _, u := range e.urlRe.FindAllString(content, -1) {
		if !e.excluded(u) {
			links = append(links, u)
		}
	}

	return links
}

func (e *Extractor) excluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)

	if e.selfHost != "" && strings.Contains(lower, e.selfHost) {
		return true
	}

	for _, host := range socialHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}

	return false
}
