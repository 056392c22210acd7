package collab

import (
	"context"
	"errors"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

const feedService = "feed reader"

// FeedEntry is one syndication item. Summary is the raw HTML description.
type FeedEntry struct {
	Title   string
	Link    string
	Summary string
}

// FeedSource reads the entries of one feed URL.
type FeedSource interface {
	Entries(ctx context.Context, feedURL string) ([]FeedEntry, error)
}

// FeedReader parses RSS and Atom feeds with gofeed.
type FeedReader struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewFeedReader returns a reader whose requests are bounded by timeout.
func NewFeedReader(timeout time.Duration) *FeedReader {
	fp := gofeed.NewParser()
	fp.Client = newHTTPClient(timeout)
	fp.UserAgent = UserAgent
	return &FeedReader{parser: fp, timeout: timeout}
}

// Entries fetches and parses feedURL. Items fall back to their content when they
// carry no description.
func (r *FeedReader) Entries(ctx context.Context, feedURL string) ([]FeedEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, apperr.Unavailable(feedService, err)
	}
	if feed == nil {
		return nil, apperr.Unavailable(feedService, errors.New("empty feed"))
	}

	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		entries = append(entries, FeedEntry{Title: item.Title, Link: item.Link, Summary: summary})
	}
	return entries, nil
}
