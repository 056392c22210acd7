package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/collab"
	"github.com/aktagon/content-pipeline/internal/selector"
	"github.com/aktagon/content-pipeline/internal/store"
)

type fakeTrends struct {
	directions map[string]string
	err        error
}

func (f fakeTrends) Interest(context.Context, []string) (map[string]string, error) {
	return f.directions, f.err
}

type fakeFeeds map[string][]collab.FeedEntry

func (f fakeFeeds) Entries(_ context.Context, url string) ([]collab.FeedEntry, error) {
	entries, ok := f[url]
	if !ok {
		return nil, apperr.Unavailable("feed reader", fmt.Errorf("unknown feed %s", url))
	}
	return entries, nil
}

type fakePages map[string]*collab.Page

func (f fakePages) Page(_ context.Context, url string) (*collab.Page, error) {
	page, ok := f[url]
	if !ok {
		return nil, apperr.Unavailable("page fetcher", errors.New("not found"))
	}
	return page, nil
}

var unavailable = apperr.Unavailable("trends service", errors.New("down"))

func TestCollectTrendsLive(t *testing.T) {
	s := store.NewMemStore()
	c := New(s, fakeTrends{directions: map[string]string{"a": collab.DirectionRising}}, nil, nil, zaptest.NewLogger(t))

	report, err := c.CollectTrends(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, SourceLive, report.Source)
	assert.Equal(t, []string{
		"Search interest for 'a' has shown recent upticks in metropolitan areas.",
		"Search interest for 'b' has held steady in recent months.",
	}, report.TrendSummary)

	data, err := s.Read(artifact.TrendSummary)
	require.NoError(t, err)
	require.NoError(t, artifact.Validate(artifact.TrendSummary, data))
}

func TestCollectTrendsCapsBullets(t *testing.T) {
	keywords := []string{"a", "b", "c", "d", "e", "f", "g"}
	c := New(store.NewMemStore(), fakeTrends{directions: map[string]string{}}, nil, nil, nil)

	report, err := c.CollectTrends(context.Background(), keywords)
	require.NoError(t, err)
	assert.Len(t, report.TrendSummary, maxTrendBullets)
}

func TestCollectTrendsFallback(t *testing.T) {
	s := store.NewMemStore()
	c := New(s, fakeTrends{err: unavailable}, nil, nil, zaptest.NewLogger(t))

	report, err := c.CollectTrends(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, report.Source)
	assert.Equal(t, DefaultKeywords, report.Keywords)
	require.Len(t, report.TrendSummary, 3)

	seed := "trends-" + strings.Join(DefaultKeywords, "-")
	for i, bullet := range report.TrendSummary {
		want := selector.MustSelect(fmt.Sprintf("%s%d", seed, i+1), trendFallbacks[i])
		assert.Equal(t, want, bullet)
	}

	again, err := New(store.NewMemStore(), nil, nil, nil, nil).CollectTrends(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, report.TrendSummary, again.TrendSummary, "fallback must be deterministic")

	log, err := s.Read(artifact.RunLog)
	require.NoError(t, err)
	assert.Contains(t, string(log), "trends error:")
}

func TestFetchFeeds(t *testing.T) {
	feeds := fakeFeeds{
		"https://one.example/feed": {
			{Title: "One", Link: "https://one.example/1", Summary: "<p>Blush <b>walls</b></p>"},
			{Title: "Two", Link: "https://one.example/2", Summary: ""},
			{Title: "Three", Link: "https://one.example/3", Summary: "plain"},
			{Title: "Four", Link: "https://one.example/4", Summary: "dropped"},
		},
		"https://two.example/feed":   {{Title: "Other", Link: "https://two.example/1", Summary: "x"}},
		"https://three.example/feed": {{Title: "Ignored", Link: "https://three.example/1", Summary: "y"}},
	}
	pages := fakePages{"https://one.example/2": {Title: "Page", Paragraph: strings.Repeat("é", 400)}}

	s := store.NewMemStore()
	c := New(s, nil, feeds, pages, zaptest.NewLogger(t))
	result, err := c.FetchFeeds(context.Background(), []string{
		"https://one.example/feed", "https://two.example/feed", "https://three.example/feed",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceLive, result.Source)
	require.Len(t, result.Items, 4)
	assert.Equal(t, "Blush **walls**", result.Items[0].Summary)
	assert.Equal(t, strings.Repeat("é", snippetRunes), result.Items[1].Summary)
	assert.Equal(t, "plain", result.Items[2].Summary)
	assert.Equal(t, "Other", result.Items[3].Title)

	var written []CompetitorItem
	require.NoError(t, s.ReadJSON(artifact.CompetitorFeeds, &written))
	assert.Equal(t, result.Items, written)
}

func TestFetchFeedsFallback(t *testing.T) {
	tests := []struct {
		name  string
		feeds fakeFeeds
		urls  []string
	}{
		{"no urls", fakeFeeds{}, nil},
		{"all failing", fakeFeeds{}, []string{"https://down.example/feed"}},
		{"zero items", fakeFeeds{"https://empty.example/feed": {}}, []string{"https://empty.example/feed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemStore()
			result, err := New(s, nil, tt.feeds, nil, zaptest.NewLogger(t)).FetchFeeds(context.Background(), tt.urls)
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, result.Source)
			require.Len(t, result.Items, 2)

			seed := "feeds-" + strings.Join(tt.urls, "")
			assert.Equal(t, "Competitor: Pastel Home Trends", result.Items[0].Title)
			assert.Equal(t, "https://example.com/comp1", result.Items[0].Link)
			assert.Equal(t, selector.MustSelect(seed+"a", competitorFallbacks[0].options), result.Items[0].Summary)
			assert.Equal(t, "Competitor: Paint Guide", result.Items[1].Title)
			assert.Equal(t, selector.MustSelect(seed+"b", competitorFallbacks[1].options), result.Items[1].Summary)

			data, err := s.Read(artifact.CompetitorFeeds)
			require.NoError(t, err)
			require.NoError(t, artifact.Validate(artifact.CompetitorFeeds, data))
		})
	}
}

func TestFetchPageSnippetFailure(t *testing.T) {
	c := New(store.NewMemStore(), nil, nil, fakePages{}, nil)
	got := c.FetchPageSnippet(context.Background(), "https://missing.example/")
	assert.Equal(t, PageSnippet{Title: "https://missing.example/", URL: "https://missing.example/"}, got)
}

func TestCollectorWritesFail(t *testing.T) {
	s := store.NewMemStore()
	s.FailWrites = true
	_, err := New(s, nil, nil, nil, nil).CollectTrends(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsWriteFailed(err))
}

func TestCollectorAgainstHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>Bare</title><link>http://%s/article</link></item></channel></rss>`, r.Host)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Article</title></head><body><p>Soft sage pairs with oak.</p></body></html>`))
	})
	mux.HandleFunc("/trends", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"interest": map[string][]int{"sage": {1, 5}}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := store.NewMemStore()
	c := New(s,
		collab.NewTrendsClient(server.URL+"/trends", time.Second, nil),
		collab.NewFeedReader(time.Second),
		collab.NewPageFetcher(time.Second, nil),
		zaptest.NewLogger(t))

	report, err := c.CollectTrends(context.Background(), []string{"sage"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Search interest for 'sage' has shown recent upticks in metropolitan areas."}, report.TrendSummary)

	result, err := c.FetchFeeds(context.Background(), []string{server.URL + "/feed"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Soft sage pairs with oak.", result.Items[0].Summary)
}
