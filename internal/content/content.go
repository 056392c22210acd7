// Package content produces the article and its companion documents: the article
// description, the FAQ, social captions and the schema.org metadata document.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/collab"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/metablock"
	"github.com/aktagon/content-pipeline/internal/store"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
)

// Generation sources recorded in article.json.
const (
	GeneratedByFallback = "FALLBACK"
	GeneratedByModel    = "anthropic"
)

// Prompt placeholders.
const (
	TrendPlaceholder      = "{{.TrendSummary}}"
	CompetitorPlaceholder = "{{.CompetitorSummary}}"
)

const articleBodyRunes = 500

// Settings configures the content stage.
type Settings struct {
	Brand          string
	SiteURL        string
	PromptTemplate string
}

// ArticleInput is what GenerateArticle writes about.
type ArticleInput struct {
	TrendBullets      []string
	CompetitorBullets []string
	SeedKey           string
	Temperature       float64
}

// ArticleResult summarizes a generated article.
type ArticleResult struct {
	Title         string
	WordCount     int
	Metadata      metablock.Metadata
	GeneratedBy   string
	ArtifactPaths []string
}

// Fallback reports whether the built-in article was used.
func (r *ArticleResult) Fallback() bool {
	return r.GeneratedBy == GeneratedByFallback
}

// ArticleDocument is the content of article.json.
type ArticleDocument struct {
	Title         string             `json:"title"`
	HTMLPath      string             `json:"html_path"`
	WordCount     int                `json:"word_count"`
	Metadata      metablock.Metadata `json:"metadata"`
	GeneratedBy   string             `json:"generated_by"`
	Date          string             `json:"date"`
	Context       string             `json:"@context"`
	Type          string             `json:"@type"`
	Headline      string             `json:"headline"`
	Author        string             `json:"author"`
	DatePublished string             `json:"datePublished"`
	Description   string             `json:"description"`
	Image         string             `json:"image"`
}

// FAQDocument is the content of faq.json.
type FAQDocument struct {
	FAQHTML string `json:"faq_html"`
	Count   int    `json:"count"`
	Type    string `json:"type"`
}

// Organization is the schema.org author of metadata.json.
type Organization struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// MetadataDocument is the content of metadata.json.
type MetadataDocument struct {
	Context       string       `json:"@context"`
	Type          string       `json:"@type"`
	Headline      string       `json:"headline"`
	Description   string       `json:"description"`
	Author        Organization `json:"author"`
	DatePublished string       `json:"datePublished"`
	DateModified  string       `json:"dateModified"`
	Image         string       `json:"image"`
	ArticleBody   string       `json:"articleBody"`
	WordCount     int          `json:"wordCount"`
	Keywords      []string     `json:"keywords"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for publication dates.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		g.now = clock
	}
}

// Generator runs the content stage.
type Generator struct {
	store    store.Store
	text     collab.TextGenerator
	settings Settings
	now      func() time.Time
	log      *zap.Logger
}

// New returns a Generator. A nil text generator always yields the fallback article.
func New(s store.Store, text collab.TextGenerator, settings Settings, log *zap.Logger, opts ...Option) *Generator {
	g := &Generator{store: s, text: text, settings: settings, now: time.Now, log: logger.OrNop(log)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildPrompt substitutes the newline-joined bullet lists into tmpl.
func BuildPrompt(tmpl string, trendBullets, competitorBullets []string) (string, error) {
	for _, placeholder := range []string{TrendPlaceholder, CompetitorPlaceholder} {
		if !strings.Contains(tmpl, placeholder) {
			return "", apperr.InvalidArgument("article prompt template must contain %s", placeholder)
		}
	}
	prompt := strings.ReplaceAll(tmpl, TrendPlaceholder, strings.Join(trendBullets, "\n"))
	return strings.ReplaceAll(prompt, CompetitorPlaceholder, strings.Join(competitorBullets, "\n")), nil
}

// GenerateArticle drafts the article and writes article.html, article.json,
// faq.json, social_captions.txt and metadata.json.
func (g *Generator) GenerateArticle(ctx context.Context, in ArticleInput) (*ArticleResult, error) {
	if err := g.store.AppendLog("Starting article generation"); err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(g.settings.PromptTemplate, in.TrendBullets, in.CompetitorBullets)
	if err != nil {
		return nil, err
	}

	today := g.now().Format("2006-01-02")
	result := &ArticleResult{GeneratedBy: GeneratedByModel}

	doc, err := g.draft(ctx, prompt, in.Temperature)
	if err != nil {
		g.log.Warn("text generator unavailable, using fallback article", zap.Error(err))
		if err := g.store.AppendLog(fmt.Sprintf("text generator error: %v", err)); err != nil {
			return nil, err
		}
		if doc, err = g.fallbackArticle(today); err != nil {
			return nil, err
		}
		result.GeneratedBy = GeneratedByFallback
	}

	meta, extracted := metablock.Resolve(doc, metablock.Default(g.settings.Brand, g.now()))
	if !extracted {
		g.log.Info("no metadata block in article, using default metadata")
	}
	doc, err = metablock.Embed(doc, meta)
	if err != nil {
		return nil, apperr.WriteFailed(artifact.ArticleHTML, err)
	}

	result.Title = FallbackTitle
	if !result.Fallback() {
		result.Title = title(doc)
	}
	result.Metadata = meta
	text := textmetrics.StripTags(doc)
	result.WordCount = textmetrics.WordCount(text)

	if err := g.store.Write(artifact.ArticleHTML, []byte(doc)); err != nil {
		return nil, err
	}
	if err := g.store.WriteJSON(artifact.ArticleJSON, g.articleDocument(result, today)); err != nil {
		return nil, err
	}

	faqHTML, count := FAQHTML()
	if err := g.store.WriteJSON(artifact.FAQ, FAQDocument{FAQHTML: faqHTML, Count: count, Type: "html"}); err != nil {
		return nil, err
	}
	if err := g.store.Write(artifact.SocialCaptions, []byte(SocialCaptions())); err != nil {
		return nil, err
	}
	if err := g.store.WriteJSON(artifact.Metadata, g.metadataDocument(result, text, today)); err != nil {
		return nil, err
	}

	for _, name := range []string{artifact.ArticleHTML, artifact.ArticleJSON, artifact.FAQ, artifact.SocialCaptions, artifact.Metadata} {
		result.ArtifactPaths = append(result.ArtifactPaths, g.store.Path(name))
	}

	if err := g.store.AppendLog(fmt.Sprintf("Article generated: %d words, title: %q", result.WordCount, result.Title)); err != nil {
		return nil, err
	}
	g.log.Info("article generated",
		zap.String("title", result.Title),
		zap.Int("words", result.WordCount),
		zap.String("generated_by", result.GeneratedBy),
		zap.String("seed", in.SeedKey))
	return result, nil
}

func (g *Generator) draft(ctx context.Context, prompt string, temperature float64) (string, error) {
	if g.text == nil {
		return "", apperr.Unavailable("text generator", fmt.Errorf("not configured"))
	}
	return g.text.Generate(ctx, prompt, temperature)
}

// fallbackArticle renders the built-in article with its own metadata block.
func (g *Generator) fallbackArticle(today string) (string, error) {
	doc, err := renderFallback()
	if err != nil {
		return "", err
	}
	return metablock.Embed(doc, metablock.Metadata{
		MetaDescription: deck.MetaDescription,
		Tags:            append([]string(nil), metablock.DefaultTags...),
		Author:          g.settings.Brand,
		DatePublished:   today,
	})
}

// title returns the first <h1>, else the <title>, of doc.
func title(doc string) string {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return FallbackTitle
	}
	for _, selector := range []string{"h1", "title"} {
		if t := strings.TrimSpace(parsed.Find(selector).First().Text()); t != "" {
			return t
		}
	}
	return FallbackTitle
}

func (g *Generator) heroURL() string {
	return strings.TrimRight(g.settings.SiteURL, "/") + "/" + store.OutputsDirName + "/" + artifact.Hero
}

func (g *Generator) articleDocument(r *ArticleResult, today string) ArticleDocument {
	return ArticleDocument{
		Title:         r.Title,
		HTMLPath:      store.OutputsDirName + "/" + artifact.ArticleHTML,
		WordCount:     r.WordCount,
		Metadata:      r.Metadata,
		GeneratedBy:   r.GeneratedBy,
		Date:          today,
		Context:       "https://schema.org",
		Type:          "Article",
		Headline:      r.Title,
		Author:        r.Metadata.Author,
		DatePublished: r.Metadata.DatePublished,
		Description:   r.Metadata.MetaDescription,
		Image:         g.heroURL(),
	}
}

func (g *Generator) metadataDocument(r *ArticleResult, text, today string) MetadataDocument {
	return MetadataDocument{
		Context:     "https://schema.org",
		Type:        "Article",
		Headline:    r.Title,
		Description: r.Metadata.MetaDescription,
		Author: Organization{
			Type: "Organization",
			Name: r.Metadata.Author,
			Logo: strings.TrimRight(g.settings.SiteURL, "/") + "/logo.png",
		},
		DatePublished: r.Metadata.DatePublished,
		DateModified:  today,
		Image:         g.heroURL(),
		ArticleBody:   textmetrics.Truncate(text, articleBodyRunes) + "...",
		WordCount:     r.WordCount,
		Keywords:      r.Metadata.Tags,
	}
}
