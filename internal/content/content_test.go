package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/metablock"
	"github.com/aktagon/content-pipeline/internal/store"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
)

const testPrompt = "Trends:\n{{.TrendSummary}}\nCompetitors:\n{{.CompetitorSummary}}\n"

var testSettings = Settings{Brand: "CALYCO", SiteURL: "https://calyco.example.com/", PromptTemplate: testPrompt}

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
}

type fakeText struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeText) Generate(_ context.Context, prompt string, _ float64) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func generate(t *testing.T, s store.Store, text *fakeText) *ArticleResult {
	t.Helper()
	g := New(s, text, testSettings, zaptest.NewLogger(t), WithClock(fixedNow))
	result, err := g.GenerateArticle(context.Background(), ArticleInput{
		TrendBullets:      []string{"trend one", "trend two"},
		CompetitorBullets: []string{"comp: summary"},
		SeedKey:           "calyco",
		Temperature:       0.6,
	})
	require.NoError(t, err)
	return result
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(testPrompt, []string{"a", "b"}, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, "Trends:\na\nb\nCompetitors:\nc\n", prompt)

	_, err = BuildPrompt("no placeholders", nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestGenerateArticleFallback(t *testing.T) {
	s := store.NewMemStore()
	result := generate(t, s, &fakeText{err: apperr.Unavailable("text generator", errors.New("no key"))})

	assert.Equal(t, GeneratedByFallback, result.GeneratedBy)
	assert.True(t, result.Fallback())
	assert.Equal(t, FallbackTitle, result.Title)
	assert.Greater(t, result.WordCount, 600)
	assert.Equal(t, "CALYCO", result.Metadata.Author)
	assert.Equal(t, "2025-03-14", result.Metadata.DatePublished)
	assert.Equal(t, metablock.DefaultTags, result.Metadata.Tags)
	assert.Len(t, result.ArtifactPaths, 5)

	html, err := s.Read(artifact.ArticleHTML)
	require.NoError(t, err)
	embedded, err := metablock.Extract(string(html))
	require.NoError(t, err)
	assert.Equal(t, result.Metadata, embedded)
	assert.Contains(t, string(html), "<!-- HERO_IMAGE_ALT:")
	assert.Equal(t, 1, strings.Count(string(html), "<!-- METADATA:"))

	var article ArticleDocument
	require.NoError(t, s.ReadJSON(artifact.ArticleJSON, &article))
	assert.Equal(t, result.WordCount, article.WordCount)
	assert.Equal(t, textmetrics.HTMLWordCount(string(html)), article.WordCount)
	assert.Equal(t, embedded, article.Metadata)
	assert.Equal(t, "outputs/article.html", article.HTMLPath)
	assert.Equal(t, "https://calyco.example.com/outputs/hero.png", article.Image)
	assert.NotContains(t, article.ArticleBody, "margin", "stylesheet text is not article text")

	keywords, _ := textmetrics.KeywordsAndTags(textmetrics.StripTags(string(html)))
	assert.NotContains(t, keywords, "margin")

	var meta MetadataDocument
	require.NoError(t, s.ReadJSON(artifact.Metadata, &meta))
	assert.Equal(t, embedded.Tags, meta.Keywords)
	assert.Equal(t, embedded.Author, meta.Author.Name)
	assert.Equal(t, "https://calyco.example.com/logo.png", meta.Author.Logo)
	assert.True(t, strings.HasSuffix(meta.ArticleBody, "..."))

	var faq FAQDocument
	require.NoError(t, s.ReadJSON(artifact.FAQ, &faq))
	assert.Equal(t, 6, faq.Count)
	assert.Equal(t, 6, strings.Count(faq.FAQHTML, "<li "))

	captions, err := s.Read(artifact.SocialCaptions)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(captions), CaptionSeparator), 3)

	for _, name := range []string{artifact.ArticleJSON, artifact.FAQ, artifact.Metadata} {
		data, err := s.Read(name)
		require.NoError(t, err)
		assert.NoError(t, artifact.Validate(name, data), name)
	}
}

func TestGenerateArticleNilGenerator(t *testing.T) {
	s := store.NewMemStore()
	g := New(s, nil, testSettings, nil, WithClock(fixedNow))
	result, err := g.GenerateArticle(context.Background(), ArticleInput{})
	require.NoError(t, err)
	assert.True(t, result.Fallback())
}

func TestGenerateArticleFallbackIsDeterministic(t *testing.T) {
	first, second := store.NewMemStore(), store.NewMemStore()
	generate(t, first, &fakeText{err: errors.New("down")})
	generate(t, second, &fakeText{err: errors.New("down")})

	for _, name := range []string{artifact.ArticleHTML, artifact.ArticleJSON, artifact.Metadata, artifact.FAQ} {
		a, err := first.Read(name)
		require.NoError(t, err)
		b, err := second.Read(name)
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestGenerateArticleFromModel(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantMeta metablock.Metadata
		title    string
	}{
		{
			name:  "canonical block",
			reply: `<html><head><title>Head</title></head><body><h1>Sage Homes</h1><p>Words here.</p><!-- METADATA:{"meta_description":"Sage.","tags":["sage"],"author":"Writer","datePublished":"2025-01-02"} --></body></html>`,
			wantMeta: metablock.Metadata{
				MetaDescription: "Sage.", Tags: []string{"sage"}, Author: "Writer", DatePublished: "2025-01-02",
			},
			title: "Sage Homes",
		},
		{
			name:  "attribute block with gaps",
			reply: `<html><head><title>Only Title</title><meta name="article-metadata" content='{"meta_description":"Blush.","tags":[]}'></head><body><p>Text.</p></body></html>`,
			wantMeta: metablock.Metadata{
				MetaDescription: "Blush.", Tags: metablock.DefaultTags, Author: "CALYCO", DatePublished: "2025-03-14",
			},
			title: "Only Title",
		},
		{
			name:     "no block",
			reply:    `<html><body><h1>Plain</h1><p>Text.</p></body></html>`,
			wantMeta: metablock.Default("CALYCO", fixedNow()),
			title:    "Plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemStore()
			text := &fakeText{reply: tt.reply}
			result := generate(t, s, text)

			assert.Contains(t, text.prompt, "trend one\ntrend two")
			assert.Contains(t, text.prompt, "comp: summary")
			assert.Equal(t, GeneratedByModel, result.GeneratedBy)
			assert.Equal(t, tt.title, result.Title)
			assert.Equal(t, tt.wantMeta, result.Metadata)

			html, err := s.Read(artifact.ArticleHTML)
			require.NoError(t, err)
			assert.NotContains(t, string(html), "article-metadata")
			embedded, err := metablock.Extract(string(html))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMeta, embedded)

			var meta MetadataDocument
			require.NoError(t, s.ReadJSON(artifact.Metadata, &meta))
			assert.Equal(t, tt.wantMeta.Tags, meta.Keywords)
			assert.Equal(t, tt.wantMeta.MetaDescription, meta.Description)
		})
	}
}

func TestGenerateArticleWriteFailure(t *testing.T) {
	s := store.NewMemStore()
	s.FailWrites = true
	g := New(s, nil, testSettings, nil)
	_, err := g.GenerateArticle(context.Background(), ArticleInput{})
	require.Error(t, err)
	assert.True(t, apperr.IsWriteFailed(err))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Heading", title("<html><head><title>T</title></head><body><h1> Heading </h1></body></html>"))
	assert.Equal(t, "T", title("<html><head><title>T</title></head><body></body></html>"))
	assert.Equal(t, FallbackTitle, title("<p>none</p>"))
}
