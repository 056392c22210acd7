// Package textmetrics derives word counts and quality heuristics from article text.
// Every function is pure: the same input always yields the same output, so the
// content and valuation stages agree on numbers they compute independently.
package textmetrics

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	stylePattern    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	scriptPattern   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
	syllablePattern = regexp.MustCompile(`(?i)[aeiouy]+`)
)

// StripTags drops <style> and <script> elements with their bodies, then removes
// every remaining tag. Text between tags is untouched, so adjacent elements join
// without a separator.
func StripTags(html string) string {
	html = stylePattern.ReplaceAllString(html, "")
	html = scriptPattern.ReplaceAllString(html, "")
	return tagPattern.ReplaceAllString(html, "")
}

// Words returns the alphanumeric tokens of text in order.
func Words(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// WordCount counts alphanumeric tokens in text.
func WordCount(text string) int {
	return len(Words(text))
}

// HTMLWordCount is WordCount over the tag-stripped html.
func HTMLWordCount(html string) int {
	return WordCount(StripTags(html))
}

// Readability is a Flesch reading-ease estimate using a vowel-group syllable
// heuristic, floored at 0 and rounded to one decimal.
func Readability(text string) float64 {
	sentences := 0
	for _, s := range sentencePattern.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := Words(text)
	if sentences == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += len(syllablePattern.FindAllStringIndex(w, -1))
	}

	asl := float64(len(words)) / float64(sentences)
	asw := float64(syllables) / float64(len(words))
	score := math.Max(0, 206.835-1.015*asl-84.6*asw)
	return math.Round(score*10) / 10
}

// Originality measures lexical repetition: 30 + 70 * unique/total, rounded and
// clamped to [0, 100]. Text without words scores the floor of 30.
func Originality(text string) int {
	words := Words(strings.ToLower(text))
	if len(words) == 0 {
		return 30
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(words))
	score := int(math.Round(30 + ratio*70))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TermCount is a token and its frequency.
type TermCount struct {
	Term  string
	Count int
}

// TopTerms returns the n most frequent lowercase tokens of at least four runes,
// ordered by count descending and then by first occurrence.
func TopTerms(text string, n int) []TermCount {
	counts := map[string]int{}
	var order []string
	for _, w := range Words(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}

	terms := make([]TermCount, len(order))
	for i, w := range order {
		terms[i] = TermCount{Term: w, Count: counts[w]}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Count > terms[j].Count
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// KeywordsAndTags returns the top 3 terms as keywords and the top 5 as tags.
func KeywordsAndTags(text string) (keywords, tags []string) {
	top := TopTerms(text, 10)
	keywords = make([]string, 0, 3)
	tags = make([]string, 0, 5)
	for i, t := range top {
		if i < 3 {
			keywords = append(keywords, t.Term)
		}
		if i < 5 {
			tags = append(tags, t.Term)
		}
	}
	return keywords, tags
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
