// processor.go
package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/cache"
	"github.com/aktagon/content-pipeline/internal/collab"
	"github.com/aktagon/content-pipeline/internal/collector"
	"github.com/aktagon/content-pipeline/internal/content"
	"github.com/aktagon/content-pipeline/internal/imagegen"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/metrics"
	"github.com/aktagon/content-pipeline/internal/store"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
	"github.com/aktagon/content-pipeline/internal/valuation"
)

const competitorSummaryRunes = 100

// Collaborator names used for fallback metrics.
const (
	collabTrends = "trends"
	collabFeeds  = "feeds"
	collabText   = "text"
	collabImage  = "image"
)

// Collaborators are the external services a run may use. Nil members behave as
// unavailable services.
type Collaborators struct {
	Text   collab.TextGenerator
	Images collab.ImageGenerator
	Trends collab.TrendsSource
	Feeds  collab.FeedSource
	Pages  collab.PageSource
}

// NewCollaborators builds the network-backed collaborators described by settings.
func NewCollaborators(settings *Settings, c cache.Cache) Collaborators {
	timeout := settings.Timeout()
	return Collaborators{
		Text: collab.NewAnthropicWriter(collab.TextSettings{
			APIKey:       settings.TextAPIKey,
			Model:        settings.Text.Model,
			MaxTokens:    settings.Text.MaxTokens,
			SystemPrompt: settings.WriterSystemPrompt,
			Timeout:      timeout,
		}),
		Images: collab.NewHTTPImageGenerator(collab.ImageSettings{
			APIKey:   settings.ImageAPIKey,
			Endpoint: settings.Image.Endpoint,
			Model:    settings.Image.Model,
			Timeout:  timeout,
		}),
		Trends: collab.NewTrendsClient(settings.Trends.Endpoint, timeout, c),
		Feeds:  collab.NewFeedReader(timeout),
		Pages:  collab.NewPageFetcher(timeout, c),
	}
}

// PipelineProcessor runs pipeline stages against one Output Store.
type PipelineProcessor struct {
	runID       string
	seedKey     string
	temperature float64

	store     store.Store
	collector *collector.Collector
	content   *content.Generator
	images    *imagegen.Generator
	valuator  *valuation.Valuator
	recorder  *metrics.Recorder
	log       *zap.Logger
}

// NewPipelineProcessor wires the stages to s and collabs.
func NewPipelineProcessor(s store.Store, settings *Settings, collabs Collaborators, log *zap.Logger, opts ...content.Option) (*PipelineProcessor, error) {
	runID := uuid.NewString()
	log = logger.OrNop(log).With(zap.String("run_id", runID))

	images, err := imagegen.New(s, collabs.Images, settings.Image.Variants, log.Named("image"))
	if err != nil {
		return nil, fmt.Errorf("configuring image stage: %w", err)
	}

	return &PipelineProcessor{
		runID:       runID,
		seedKey:     settings.SeedKey,
		temperature: settings.Text.Temperature,
		store:       s,
		collector:   collector.New(s, collabs.Trends, collabs.Feeds, collabs.Pages, log.Named("collect")),
		content: content.New(s, collabs.Text, content.Settings{
			Brand:          settings.Brand,
			SiteURL:        settings.SiteURL,
			PromptTemplate: settings.ArticlePrompt,
		}, log.Named("content"), opts...),
		images:   images,
		valuator: valuation.NewValuator(s, log.Named("valuation")),
		recorder: metrics.NewRecorder(runID),
		log:      log,
	}, nil
}

// RunID identifies this processor's run in logs and metrics.
func (p *PipelineProcessor) RunID() string {
	return p.runID
}

// Recorder returns the run's metrics.
func (p *PipelineProcessor) Recorder() *metrics.Recorder {
	return p.recorder
}

// SetTemperature overrides the text generation temperature.
func (p *PipelineProcessor) SetTemperature(t float64) {
	p.temperature = t
}

func (p *PipelineProcessor) observe(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.recorder.ObserveStage(stage, start, err)
	if err != nil {
		p.log.Error("stage failed", zap.String("stage", stage), zap.Error(err))
	}
	return err
}

// CollectResult is what the collection stage gathered.
type CollectResult struct {
	Trends *collector.TrendReport
	Feeds  *collector.FeedResult
}

// Collect runs trend and feed collection for sources.
func (p *PipelineProcessor) Collect(ctx context.Context, sources *Sources) (*CollectResult, error) {
	if sources == nil {
		sources = &Sources{}
	}
	result := &CollectResult{}
	err := p.observe(artifact.StageCollect, func() error {
		var err error
		if result.Trends, err = p.collector.CollectTrends(ctx, sources.Keywords); err != nil {
			return err
		}
		if result.Trends.Source == collector.SourceFallback {
			p.recorder.Fallback(collabTrends)
		}
		if result.Feeds, err = p.collector.FetchFeeds(ctx, sources.Feeds); err != nil {
			return err
		}
		if result.Feeds.Source == collector.SourceFallback {
			p.recorder.Fallback(collabFeeds)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Article runs the content stage on the collection artifacts, collecting from the
// default sources first when they are missing.
func (p *PipelineProcessor) Article(ctx context.Context) (*content.ArticleResult, error) {
	trends, competitors, err := p.collectionInputs(ctx)
	if err != nil {
		return nil, err
	}
	return p.article(ctx, trends, competitors)
}

func (p *PipelineProcessor) article(ctx context.Context, trends, competitors []string) (*content.ArticleResult, error) {
	var result *content.ArticleResult
	err := p.observe(artifact.StageContent, func() error {
		var err error
		result, err = p.content.GenerateArticle(ctx, content.ArticleInput{
			TrendBullets:      trends,
			CompetitorBullets: competitors,
			SeedKey:           p.seedKey,
			Temperature:       p.temperature,
		})
		if err == nil && result.Fallback() {
			p.recorder.Fallback(collabText)
		}
		return err
	})
	return result, err
}

func (p *PipelineProcessor) collectionInputs(ctx context.Context) ([]string, []string, error) {
	var trends collector.TrendReport
	var items []collector.CompetitorItem
	if p.store.ReadJSON(artifact.TrendSummary, &trends) == nil && p.store.ReadJSON(artifact.CompetitorFeeds, &items) == nil {
		return trends.TrendSummary, competitorBullets(items), nil
	}

	p.log.Info("collection artifacts missing, collecting from default sources")
	collected, err := p.Collect(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return collected.Trends.TrendSummary, competitorBullets(collected.Feeds.Items), nil
}

// competitorBullets renders items as "<title>: <first 100 runes of summary>".
func competitorBullets(items []collector.CompetitorItem) []string {
	bullets := make([]string, 0, len(items))
	for _, item := range items {
		bullets = append(bullets, fmt.Sprintf("%s: %s", item.Title, textmetrics.Truncate(item.Summary, competitorSummaryRunes)))
	}
	return bullets
}

// Image runs the image stage.
func (p *PipelineProcessor) Image(ctx context.Context) (*imagegen.ImageResult, error) {
	var result *imagegen.ImageResult
	err := p.observe(artifact.StageImage, func() error {
		var err error
		result, err = p.images.GenerateImageVariants(ctx, p.seedKey)
		if err == nil {
			for range result.Fallbacks {
				p.recorder.Fallback(collabImage)
			}
		}
		return err
	})
	return result, err
}

// QAResult holds the three valuation reports.
type QAResult struct {
	Article *valuation.ArticleReport
	Ranking *valuation.ImageRanking
	Final   *valuation.FinalReport
}

// QA runs article checks, image ranking and final QA from the stored artifacts.
func (p *PipelineProcessor) QA() (*QAResult, error) {
	result := &QAResult{}
	err := p.observe(artifact.StageValuation, func() error {
		var err error
		if result.Article, err = p.valuator.RunArticleChecks(); err != nil {
			return err
		}
		if result.Ranking, err = p.valuator.RunImageRanking(); err != nil {
			return err
		}
		result.Final, err = p.valuator.RunFinalQA()
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Verify checks the outputs directory for completeness and consistency.
func (p *PipelineProcessor) Verify() *artifact.Report {
	report := artifact.Verify(p.store)
	p.recorder.ArtifactsVerified(len(report.Checked))
	return report
}

// RunFull runs collect, content, image and valuation in order. Any stage error
// aborts the run; collaborator failures never do.
func (p *PipelineProcessor) RunFull(ctx context.Context, sources *Sources) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: p.runID, SeedKey: p.seedKey, Status: StatusError}

	if err := p.store.AppendLog("Run: full pipeline start"); err != nil {
		summary.Error = err
		return summary, err
	}
	p.log.Info("full pipeline start", zap.String("seed", p.seedKey))

	err := p.runStages(ctx, sources, summary)
	summary.Duration = time.Since(start)
	if err != nil {
		summary.Error = err
		return summary, err
	}

	if err := p.store.AppendLog("Run: full pipeline end"); err != nil {
		summary.Error = err
		return summary, err
	}

	sort.Strings(summary.Fallbacks)
	summary.Status = StatusSuccess
	if len(summary.Fallbacks) > 0 {
		summary.Status = StatusFallback
	}
	p.log.Info("full pipeline end",
		zap.String("status", string(summary.Status)),
		zap.Strings("fallbacks", summary.Fallbacks),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *PipelineProcessor) runStages(ctx context.Context, sources *Sources, summary *RunSummary) error {
	collected, err := p.Collect(ctx, sources)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if collected.Trends.Source == collector.SourceFallback {
		summary.Fallbacks = append(summary.Fallbacks, collabTrends)
	}
	if collected.Feeds.Source == collector.SourceFallback {
		summary.Fallbacks = append(summary.Fallbacks, collabFeeds)
	}

	article, err := p.article(ctx, collected.Trends.TrendSummary, competitorBullets(collected.Feeds.Items))
	if err != nil {
		return fmt.Errorf("article: %w", err)
	}
	summary.Title = article.Title
	summary.WordCount = article.WordCount
	summary.GeneratedBy = article.GeneratedBy
	if article.Fallback() {
		summary.Fallbacks = append(summary.Fallbacks, collabText)
	}

	images, err := p.Image(ctx)
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	summary.Chosen = images.Chosen
	if len(images.Fallbacks) > 0 {
		summary.Fallbacks = append(summary.Fallbacks, collabImage)
	}

	qa, err := p.QA()
	if err != nil {
		return fmt.Errorf("valuation: %w", err)
	}
	summary.Score = qa.Ranking.Score
	summary.Readability = qa.Article.Readability
	summary.Originality = qa.Article.Originality
	return nil
}
