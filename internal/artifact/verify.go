package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aktagon/content-pipeline/internal/metablock"
	"github.com/aktagon/content-pipeline/internal/textmetrics"
)

// Reader is the read side of the Output Store.
type Reader interface {
	Read(name string) ([]byte, error)
	Exists(name string) bool
}

// Report collects the problems Verify found. An empty report means the outputs
// directory is complete and consistent.
type Report struct {
	Checked  []string
	Problems []string
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks a finished run: presence and schema of every artifact, agreement of
// the metadata block with metadata.json and article.json, the article word count,
// and that hero.png is a byte copy of the chosen variant.
func Verify(r Reader) *Report {
	report := &Report{}

	labels := variantLabels(r, report)
	for _, name := range Expected(labels) {
		report.Checked = append(report.Checked, name)
		if !r.Exists(name) {
			report.addf("%s is missing", name)
			continue
		}
		data, err := r.Read(name)
		if err != nil {
			report.addf("%s: %v", name, err)
			continue
		}
		if err := Validate(name, data); err != nil {
			report.addf("%v", err)
		}
	}

	verifyMetadata(r, report)
	verifyHero(r, report)
	return report
}

func variantLabels(r Reader, report *Report) []string {
	var meta struct {
		Variants map[string]string `json:"variants"`
	}
	if err := readJSON(r, ImageMetadata, &meta); err != nil {
		return nil
	}
	labels := make([]string, 0, len(meta.Variants))
	for label, file := range meta.Variants {
		if file != Variant(label) {
			report.addf("%s: variant %s points to %s", ImageMetadata, label, file)
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func verifyMetadata(r Reader, report *Report) {
	htmlBytes, err := r.Read(ArticleHTML)
	if err != nil {
		return
	}
	html := string(htmlBytes)

	embedded, err := metablock.Extract(html)
	if err != nil {
		report.addf("%s: %v", ArticleHTML, err)
		return
	}

	var article struct {
		WordCount int                `json:"word_count"`
		Metadata  metablock.Metadata `json:"metadata"`
	}
	if err := readJSON(r, ArticleJSON, &article); err == nil {
		if !reflect.DeepEqual(article.Metadata, embedded) {
			report.addf("%s metadata differs from the block embedded in %s", ArticleJSON, ArticleHTML)
		}
		if recount := textmetrics.HTMLWordCount(html); recount != article.WordCount {
			report.addf("%s word_count %d, recomputed %d", ArticleJSON, article.WordCount, recount)
		}
	}

	var doc struct {
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
		Author      struct {
			Name string `json:"name"`
		} `json:"author"`
		DatePublished string `json:"datePublished"`
	}
	if err := readJSON(r, Metadata, &doc); err == nil {
		if !reflect.DeepEqual(doc.Keywords, embedded.Tags) {
			report.addf("%s keywords %v differ from embedded tags %v", Metadata, doc.Keywords, embedded.Tags)
		}
		if doc.Author.Name != embedded.Author {
			report.addf("%s author %q differs from embedded author %q", Metadata, doc.Author.Name, embedded.Author)
		}
		if doc.Description != embedded.MetaDescription {
			report.addf("%s description differs from embedded meta_description", Metadata)
		}
		if doc.DatePublished != embedded.DatePublished {
			report.addf("%s datePublished %q differs from embedded %q", Metadata, doc.DatePublished, embedded.DatePublished)
		}
	}
}

func verifyHero(r Reader, report *Report) {
	var meta struct {
		Chosen string `json:"chosen"`
	}
	if err := readJSON(r, ImageMetadata, &meta); err != nil || strings.TrimSpace(meta.Chosen) == "" {
		return
	}
	hero, err := r.Read(Hero)
	if err != nil {
		return
	}
	variant, err := r.Read(Variant(meta.Chosen))
	if err != nil {
		report.addf("chosen variant %s has no file", meta.Chosen)
		return
	}
	if !bytes.Equal(hero, variant) {
		report.addf("%s is not a copy of %s", Hero, Variant(meta.Chosen))
	}
}

func readJSON(r Reader, name string, v any) error {
	data, err := r.Read(name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
