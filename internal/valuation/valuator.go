package valuation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/imagegen"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/store"
)

// MissingInputError reports an artifact another stage has not written yet.
type MissingInputError struct {
	Name string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input %s: %v", e.Name, e.Err)
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// Valuator runs the valuation entry points against a Store.
type Valuator struct {
	store store.Store
	log   *zap.Logger
}

// NewValuator returns a Valuator reading from and writing to s.
func NewValuator(s store.Store, log *zap.Logger) *Valuator {
	return &Valuator{store: s, log: logger.OrNop(log)}
}

func (v *Valuator) articleHTML() (string, error) {
	data, err := v.store.Read(artifact.ArticleHTML)
	if err != nil {
		return "", &MissingInputError{Name: artifact.ArticleHTML, Err: err}
	}
	return string(data), nil
}

// RunArticleChecks reads article.html and writes qa_report.json.
func (v *Valuator) RunArticleChecks() (*ArticleReport, error) {
	html, err := v.articleHTML()
	if err != nil {
		return nil, err
	}
	report := CheckArticle(html)
	if err := v.store.WriteJSON(artifact.QAReport, report); err != nil {
		return nil, err
	}
	if err := v.store.AppendLog("Saved QA report to " + v.store.Path(artifact.QAReport)); err != nil {
		return nil, err
	}
	v.log.Info("article checks done",
		zap.Int("words", report.WordCount),
		zap.Float64("readability", report.Readability),
		zap.Int("originality", report.Originality))
	return &report, nil
}

// RunImageRanking reads image_metadata.json and writes image_ranking.json.
func (v *Valuator) RunImageRanking() (*ImageRanking, error) {
	var meta imagegen.ImageMetadata
	if err := v.store.ReadJSON(artifact.ImageMetadata, &meta); err != nil {
		return nil, &MissingInputError{Name: artifact.ImageMetadata, Err: err}
	}
	ranking, err := RankImages(meta)
	if err != nil {
		return nil, err
	}
	if err := v.store.WriteJSON(artifact.ImageRanking, ranking); err != nil {
		return nil, err
	}
	if err := v.store.AppendLog("Saved image ranking to " + v.store.Path(artifact.ImageRanking)); err != nil {
		return nil, err
	}
	v.log.Info("image ranked", zap.String("chosen", ranking.Chosen), zap.Int("score", ranking.Score))
	return &ranking, nil
}

// RunFinalQA reads article.html and writes final_qa.json.
func (v *Valuator) RunFinalQA() (*FinalReport, error) {
	html, err := v.articleHTML()
	if err != nil {
		return nil, err
	}
	report := FinalQA(html)
	if err := v.store.WriteJSON(artifact.FinalQA, report); err != nil {
		return nil, err
	}
	if err := v.store.AppendLog("Saved final QA to " + v.store.Path(artifact.FinalQA)); err != nil {
		return nil, err
	}
	v.log.Info("final QA done", zap.Int("words", report.WordCount), zap.Int("originality", report.Originality))
	return &report, nil
}
