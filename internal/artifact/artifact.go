// Package artifact names the files stages exchange through the Output Store and
// declares which stage reads and writes each of them.
package artifact

import (
	"fmt"
	"sort"
)

// Artifact names, relative to the outputs directory.
const (
	TrendSummary    = "trend_summary.json"
	CompetitorFeeds = "competitor_feeds.json"
	ArticleHTML     = "article.html"
	ArticleJSON     = "article.json"
	FAQ             = "faq.json"
	SocialCaptions  = "social_captions.txt"
	Metadata        = "metadata.json"
	Hero            = "hero.png"
	ImageMetadata   = "image_metadata.json"
	QAReport        = "qa_report.json"
	ImageRanking    = "image_ranking.json"
	FinalQA         = "final_qa.json"
	RunLog          = "run_log.txt"
)

// Variant returns the file name of the hero variant with the given label.
func Variant(label string) string {
	return fmt.Sprintf("hero_variant_%s.png", label)
}

// Stage names used by contracts, logs and metrics.
const (
	StageCollect   = "collect"
	StageContent   = "content"
	StageImage     = "image"
	StageValuation = "valuation"
)

// Contract lists the artifacts a stage consumes and produces. Variant files are
// written as Variant(label) for each configured label and are not listed here.
type Contract struct {
	Stage  string
	Reads  []string
	Writes []string
}

// Contracts is the complete read/write map of the pipeline.
var Contracts = []Contract{
	{
		Stage:  StageCollect,
		Writes: []string{TrendSummary, CompetitorFeeds},
	},
	{
		Stage:  StageContent,
		Writes: []string{ArticleHTML, ArticleJSON, FAQ, SocialCaptions, Metadata},
	},
	{
		Stage:  StageImage,
		Writes: []string{Hero, ImageMetadata},
	},
	{
		Stage:  StageValuation,
		Reads:  []string{ArticleHTML, ImageMetadata},
		Writes: []string{QAReport, ImageRanking, FinalQA},
	},
}

// ContractFor returns the contract of stage.
func ContractFor(stage string) (Contract, bool) {
	for _, c := range Contracts {
		if c.Stage == stage {
			return c, true
		}
	}
	return Contract{}, false
}

// Expected returns every artifact a complete run leaves behind for the given
// variant labels, sorted by name.
func Expected(labels []string) []string {
	names := []string{RunLog}
	for _, c := range Contracts {
		names = append(names, c.Writes...)
	}
	for _, label := range labels {
		names = append(names, Variant(label))
	}
	sort.Strings(names)
	return names
}
