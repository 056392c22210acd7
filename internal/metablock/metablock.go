// Package metablock reads and writes the metadata block embedded in article HTML.
//
// The canonical encoding is a single HTML comment placed before </body>:
//
//	<!-- METADATA:{"meta_description":"...","tags":[...],"author":"...","datePublished":"YYYY-MM-DD"} -->
//
// Extraction also accepts the attribute form
// <meta name="article-metadata" content='{...}'> that generators sometimes emit.
// Embed always rewrites whatever it finds into the canonical comment.
package metablock

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// DefaultDescription is used whenever no block can be extracted.
const DefaultDescription = "Complete guide to nature-inspired pastel paint trends 2025."

// DefaultTags is the tag list of the default metadata.
var DefaultTags = []string{"pastel walls", "home décor 2025", "interior design", "paint trends", "urban homes"}

var (
	commentPattern   = regexp.MustCompile(`(?s)<!-- METADATA:(\{.*?\}) -->`)
	attributePattern = regexp.MustCompile(`(?s)<meta name="article-metadata" content='(\{.*?\})'\s*/?>`)
	bodyClosePattern = regexp.MustCompile(`(?i)</body>`)

	// The strip patterns also consume the indentation and line break Embed adds.
	stripComment   = regexp.MustCompile(`(?s)[ \t]*<!-- METADATA:\{.*?\} -->\n?`)
	stripAttribute = regexp.MustCompile(`(?s)[ \t]*<meta name="article-metadata" content='\{.*?\}'\s*/?>\n?`)
)

// Metadata is the block shared by article.html, article.json and metadata.json.
type Metadata struct {
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
	Author          string   `json:"author"`
	DatePublished   string   `json:"datePublished"`
}

// Default returns the fallback metadata for brand on day.
func Default(brand string, day time.Time) Metadata {
	return Metadata{
		MetaDescription: DefaultDescription,
		Tags:            append([]string(nil), DefaultTags...),
		Author:          brand,
		DatePublished:   day.Format("2006-01-02"),
	}
}

// Extract parses the first block matched by the canonical pattern, then the
// attribute pattern. It fails with MetadataExtractionFailed when neither yields JSON.
func Extract(html string) (Metadata, error) {
	for _, pattern := range []*regexp.Regexp{commentPattern, attributePattern} {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(m[1]), &meta); err != nil {
			continue
		}
		return meta, nil
	}
	return Metadata{}, apperr.ExtractionFailed("no parsable metadata block")
}

// Resolve extracts the block from html and fills empty fields from def. The second
// result reports whether extraction succeeded; on failure def is returned unchanged.
func Resolve(html string, def Metadata) (Metadata, bool) {
	meta, err := Extract(html)
	if err != nil {
		return def, false
	}
	if strings.TrimSpace(meta.MetaDescription) == "" {
		meta.MetaDescription = def.MetaDescription
	}
	if len(meta.Tags) == 0 {
		meta.Tags = def.Tags
	}
	if strings.TrimSpace(meta.Author) == "" {
		meta.Author = def.Author
	}
	if strings.TrimSpace(meta.DatePublished) == "" {
		meta.DatePublished = def.DatePublished
	}
	return meta, true
}

// Encode renders the canonical comment for meta.
func Encode(meta Metadata) (string, error) {
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	// json.Marshal escapes '>' so the payload can never close the comment early.
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return "<!-- METADATA:" + string(data) + " -->", nil
}

// Strip removes every embedded block, canonical or attribute form.
func Strip(html string) string {
	html = stripComment.ReplaceAllString(html, "")
	return stripAttribute.ReplaceAllString(html, "")
}

// Embed replaces any existing blocks in html with one canonical block for meta,
// inserted before the last </body> or appended when there is none.
func Embed(html string, meta Metadata) (string, error) {
	block, err := Encode(meta)
	if err != nil {
		return "", err
	}
	html = Strip(html)

	locs := bodyClosePattern.FindAllStringIndex(html, -1)
	if len(locs) == 0 {
		return strings.TrimRight(html, "\n") + "\n" + block + "\n", nil
	}
	at := locs[len(locs)-1][0]
	return html[:at] + "    " + block + "\n" + html[at:], nil
}
