// Package valuation scores a finished article and hero image. Every metric is
// recomputed from the artifacts on each run; previous reports are never merged.
package valuation

import (
	"fmt"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/imagegen"
	"github.com/aktagon/content-pipeline/internal/selector"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
)

// RankScores are the scores RankImages chooses from.
var RankScores = []int{78, 82, 88}

var articleSuggestions = []string{
	"Shorten long paragraphs to improve scanability.",
	"Add specific product or palette examples for clarity.",
	"Include a stronger CTA with a link to CALYCO palettes.",
}

var editSuggestions = []string{
	"Tighten the introduction by 10-20 words for clarity.",
	"Add direct examples of paint pairings in one section.",
	"Include alt text near the hero image marker.",
}

var finalAltTexts = []string{
	"Sunlit living room with pastel walls and plants",
	"Minimalist urban living room in muted blush and sage",
}

// ArticleReport is the content of qa_report.json.
type ArticleReport struct {
	WordCount   int      `json:"word_count"`
	Readability float64  `json:"readability_flesch_like"`
	Originality int      `json:"originality_score"`
	Keywords    []string `json:"seo_keywords"`
	Tags        []string `json:"suggested_tags"`
	Suggestions []string `json:"suggestions"`
}

// ImageRanking is the content of image_ranking.json.
type ImageRanking struct {
	Chosen      string `json:"chosen"`
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// FinalReport is the content of final_qa.json.
type FinalReport struct {
	WordCount       int      `json:"word_count"`
	Originality     int      `json:"originality_score"`
	EditSuggestions []string `json:"edit_suggestions"`
	AltTexts        []string `json:"alt_texts"`
}

// CheckArticle measures the tag-stripped text of html.
func CheckArticle(html string) ArticleReport {
	text := textmetrics.StripTags(html)
	keywords, tags := textmetrics.KeywordsAndTags(text)
	return ArticleReport{
		WordCount:   textmetrics.WordCount(text),
		Readability: textmetrics.Readability(text),
		Originality: textmetrics.Originality(text),
		Keywords:    keywords,
		Tags:        tags,
		Suggestions: append([]string(nil), articleSuggestions...),
	}
}

// RankImages scores the chosen variant with Select("rank-"+chosen, RankScores).
func RankImages(meta imagegen.ImageMetadata) (ImageRanking, error) {
	if meta.Chosen == "" {
		return ImageRanking{}, apperr.InvalidArgument("image metadata names no chosen variant")
	}
	score, err := selector.Select("rank-"+meta.Chosen, RankScores)
	if err != nil {
		return ImageRanking{}, err
	}
	return ImageRanking{
		Chosen: meta.Chosen,
		Score:  score,
		Explanation: fmt.Sprintf("Variant %s chosen for brand fit: balanced lighting, soft colours and good composition. Score %d.",
			meta.Chosen, score),
	}, nil
}

// FinalQA recomputes word count and originality for the editorial summary.
func FinalQA(html string) FinalReport {
	text := textmetrics.StripTags(html)
	return FinalReport{
		WordCount:       textmetrics.WordCount(text),
		Originality:     textmetrics.Originality(text),
		EditSuggestions: append([]string(nil), editSuggestions...),
		AltTexts:        append([]string(nil), finalAltTexts...),
	}
}
