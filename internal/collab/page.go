package collab

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/cache"
)

const pageService = "page fetcher"

// Page is the title and first paragraph of a web page.
type Page struct {
	Title     string
	Paragraph string
}

// PageSource fetches a page summary.
type PageSource interface {
	Page(ctx context.Context, pageURL string) (*Page, error)
}

// PageFetcher downloads HTML pages and extracts their title and first paragraph.
type PageFetcher struct {
	timeout time.Duration
	client  *http.Client
	cache   cache.Cache
}

// NewPageFetcher returns a fetcher. A nil cache disables caching.
func NewPageFetcher(timeout time.Duration, c cache.Cache) *PageFetcher {
	if c == nil {
		c = cache.Noop{}
	}
	return &PageFetcher{timeout: timeout, client: newHTTPClient(timeout), cache: c}
}

// Page fetches pageURL once, or serves it from the cache.
func (f *PageFetcher) Page(ctx context.Context, pageURL string) (*Page, error) {
	key := cache.Key("page", pageURL)
	body, hit, err := f.cache.Get(ctx, key)
	if err != nil || !hit {
		body, err = f.request(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		_ = f.cache.Set(ctx, key, body)
	}
	return ParsePage(body)
}

func (f *PageFetcher) request(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apperr.Unavailable(pageService, err)
	}
	req.Header.Set("Accept", "text/html")
	return fetch(f.client, req, pageService)
}

// ParsePage extracts the <title> and first <p> of an HTML document.
func ParsePage(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Unavailable(pageService, err)
	}
	return &Page{
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		Paragraph: strings.TrimSpace(doc.Find("p").First().Text()),
	}, nil
}
