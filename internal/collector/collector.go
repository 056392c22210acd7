// Package collector gathers the trend and competitor signals the article prompt is
// built from, degrading to seeded fallbacks when a source is unreachable.
package collector

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/collab"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/selector"
	"github.com/aktagon/content-pipeline/internal/store"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
)

// DefaultKeywords is used when no keywords are supplied.
var DefaultKeywords = []string{
	"best pastel wall colors 2025",
	"home paint trends 2025",
	"urban home décor trends",
}

// Result sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

const (
	maxTrendBullets = 5
	maxFeeds        = 2
	maxEntries      = 3
	snippetRunes    = 300
)

var trendFallbacks = [3][]string{
	{
		"Pastel palettes are rising in searches among urban homeowners.",
		"Minimalist soft-colour interior updates are trending in 2025.",
	},
	{
		"Natural light and plant-friendly palettes are influencing paint choices.",
		"Textured finishes are receiving renewed interest for accent walls.",
	},
	{
		"Sustainable paint pigments remain a buyer concern.",
		"Easy-clean and low-VOC paints are top considerations.",
	},
}

type competitorFallback struct {
	suffix  string
	title   string
	link    string
	options []string
}

var competitorFallbacks = []competitorFallback{
	{
		suffix: "a",
		title:  "Competitor: Pastel Home Trends",
		link:   "https://example.com/comp1",
		options: []string{
			"Competitor highlights soft blush and sage palettes for small spaces.",
			"Competitor explores textured finishes and matte coatings.",
		},
	},
	{
		suffix: "b",
		title:  "Competitor: Paint Guide",
		link:   "https://example.com/comp2",
		options: []string{
			"Competitor recommends sample painting and natural lighting tests.",
			"Competitor advises pairing pastels with wooden accents.",
		},
	},
}

// TrendReport is the content of trend_summary.json.
type TrendReport struct {
	Keywords     []string `json:"keywords"`
	TrendSummary []string `json:"trend_summary"`
	Source       string   `json:"source"`
}

// CompetitorItem is one entry of competitor_feeds.json.
type CompetitorItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
}

// FeedResult is what FetchFeeds collected and where it came from.
type FeedResult struct {
	Items  []CompetitorItem
	Source string
}

// PageSnippet is a page's title and the start of its first paragraph.
type PageSnippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Collector runs the collection stage against a Store.
type Collector struct {
	store     store.Store
	trends    collab.TrendsSource
	feeds     collab.FeedSource
	pages     collab.PageSource
	converter *md.Converter
	log       *zap.Logger
}

// New returns a Collector. Nil sources behave as unavailable services.
func New(s store.Store, trends collab.TrendsSource, feeds collab.FeedSource, pages collab.PageSource, log *zap.Logger) *Collector {
	return &Collector{
		store:     s,
		trends:    trends,
		feeds:     feeds,
		pages:     pages,
		converter: md.NewConverter("", true, nil),
		log:       logger.OrNop(log),
	}
}

// CollectTrends summarizes search interest for keywords and writes trend_summary.json.
func (c *Collector) CollectTrends(ctx context.Context, keywords []string) (*TrendReport, error) {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if err := c.store.AppendLog(fmt.Sprintf("Starting trends collection for: %s", strings.Join(keywords, ", "))); err != nil {
		return nil, err
	}

	report := &TrendReport{Keywords: keywords, Source: SourceLive}
	directions, err := c.interest(ctx, keywords)
	if err != nil {
		c.log.Warn("trends unavailable, using fallback", zap.Error(err))
		if err := c.store.AppendLog(fmt.Sprintf("trends error: %v", err)); err != nil {
			return nil, err
		}
		report.Source = SourceFallback
		report.TrendSummary = fallbackTrends(keywords)
	} else {
		for _, kw := range keywords {
			if len(report.TrendSummary) == maxTrendBullets {
				break
			}
			report.TrendSummary = append(report.TrendSummary, trendBullet(kw, directions[kw]))
		}
	}

	if err := c.store.WriteJSON(artifact.TrendSummary, report); err != nil {
		return nil, err
	}
	if err := c.store.AppendLog("Saved trend summary to " + c.store.Path(artifact.TrendSummary)); err != nil {
		return nil, err
	}
	c.log.Info("collected trends", zap.String("source", report.Source), zap.Int("bullets", len(report.TrendSummary)))
	return report, nil
}

func (c *Collector) interest(ctx context.Context, keywords []string) (map[string]string, error) {
	if c.trends == nil {
		return nil, fmt.Errorf("no trends source configured")
	}
	return c.trends.Interest(ctx, keywords)
}

func trendBullet(keyword, direction string) string {
	if direction == collab.DirectionRising {
		return fmt.Sprintf("Search interest for '%s' has shown recent upticks in metropolitan areas.", keyword)
	}
	return fmt.Sprintf("Search interest for '%s' has held steady in recent months.", keyword)
}

func fallbackTrends(keywords []string) []string {
	seed := "trends-" + strings.Join(keywords, "-")
	bullets := make([]string, 0, len(trendFallbacks))
	for i, options := range trendFallbacks {
		bullets = append(bullets, selector.MustSelect(fmt.Sprintf("%s%d", seed, i+1), options))
	}
	return bullets
}

// FetchFeeds reads the first entries of the first feeds and writes
// competitor_feeds.json. When nothing can be read the seeded fallback items are used.
func (c *Collector) FetchFeeds(ctx context.Context, urls []string) (*FeedResult, error) {
	if err := c.store.AppendLog(fmt.Sprintf("Starting feed fetch for: %s", strings.Join(urls, ", "))); err != nil {
		return nil, err
	}

	items, err := c.readFeeds(ctx, urls)
	result := &FeedResult{Items: items, Source: SourceLive}
	if len(items) == 0 {
		if err == nil {
			err = fmt.Errorf("no feed entries from %d feeds", len(urls))
		}
		c.log.Warn("feeds unavailable, using fallback", zap.Error(err))
		if err := c.store.AppendLog(fmt.Sprintf("feed error: %v", err)); err != nil {
			return nil, err
		}
		result.Items = fallbackCompetitors(urls)
		result.Source = SourceFallback
	}

	if err := c.store.WriteJSON(artifact.CompetitorFeeds, result.Items); err != nil {
		return nil, err
	}
	if err := c.store.AppendLog("Saved competitor feeds to " + c.store.Path(artifact.CompetitorFeeds)); err != nil {
		return nil, err
	}
	c.log.Info("collected competitor feeds", zap.String("source", result.Source), zap.Int("items", len(result.Items)))
	return result, nil
}

// readFeeds returns the items it could read and the last error it saw.
func (c *Collector) readFeeds(ctx context.Context, urls []string) ([]CompetitorItem, error) {
	if c.feeds == nil {
		return nil, fmt.Errorf("no feed source configured")
	}
	if len(urls) > maxFeeds {
		urls = urls[:maxFeeds]
	}

	var items []CompetitorItem
	var lastErr error
	for _, u := range urls {
		entries, err := c.feeds.Entries(ctx, u)
		if err != nil {
			c.log.Debug("feed failed", zap.String("url", u), zap.Error(err))
			lastErr = err
			continue
		}
		if len(entries) > maxEntries {
			entries = entries[:maxEntries]
		}
		for _, e := range entries {
			items = append(items, c.competitorItem(ctx, e))
		}
	}
	return items, lastErr
}

func (c *Collector) competitorItem(ctx context.Context, e collab.FeedEntry) CompetitorItem {
	item := CompetitorItem{Title: e.Title, Link: e.Link, Summary: c.plainText(e.Summary)}
	if item.Summary == "" && item.Link != "" {
		item.Summary = c.FetchPageSnippet(ctx, item.Link).Snippet
	}
	return item
}

// plainText converts an HTML summary to markdown text, keeping the input on failure.
func (c *Collector) plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text, err := c.converter.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(textmetrics.StripTags(html))
	}
	return strings.TrimSpace(text)
}

func fallbackCompetitors(urls []string) []CompetitorItem {
	seed := "feeds-" + strings.Join(urls, "")
	items := make([]CompetitorItem, 0, len(competitorFallbacks))
	for _, f := range competitorFallbacks {
		items = append(items, CompetitorItem{
			Title:   f.title,
			Link:    f.link,
			Summary: selector.MustSelect(seed+f.suffix, f.options),
		})
	}
	return items
}

// FetchPageSnippet returns the title and first paragraph (at most 300 runes) of
// pageURL. Any failure yields the URL as title and an empty snippet.
func (c *Collector) FetchPageSnippet(ctx context.Context, pageURL string) PageSnippet {
	snippet := PageSnippet{Title: pageURL, URL: pageURL}
	if err := c.store.AppendLog("Fetching page snippet: " + pageURL); err != nil {
		c.log.Warn("run log write failed", zap.Error(err))
	}
	if c.pages == nil {
		return snippet
	}

	page, err := c.pages.Page(ctx, pageURL)
	if err != nil {
		c.log.Debug("page snippet failed", zap.String("url", pageURL), zap.Error(err))
		return snippet
	}
	if page.Title != "" {
		snippet.Title = page.Title
	}
	snippet.Snippet = textmetrics.Truncate(page.Paragraph, snippetRunes)
	return snippet
}
