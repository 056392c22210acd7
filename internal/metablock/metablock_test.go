package metablock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

var day = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestDefault(t *testing.T) {
	meta := Default("CALYCO", day)
	assert.Equal(t, DefaultDescription, meta.MetaDescription)
	assert.Equal(t, DefaultTags, meta.Tags)
	assert.Equal(t, "CALYCO", meta.Author)
	assert.Equal(t, "2025-06-01", meta.DatePublished)

	meta.Tags[0] = "mutated"
	assert.Equal(t, "pastel walls", DefaultTags[0], "default tags are copied")
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    Metadata
		wantErr bool
	}{
		{
			name: "canonical comment",
			html: `<body><p>x</p><!-- METADATA:{"meta_description":"d","tags":["a","b"],"author":"X","datePublished":"2024-01-02"} --></body>`,
			want: Metadata{MetaDescription: "d", Tags: []string{"a", "b"}, Author: "X", DatePublished: "2024-01-02"},
		},
		{
			name: "attribute form",
			html: `<head><meta name="article-metadata" content='{"meta_description":"m","tags":["t"],"author":"Y","datePublished":"2024-02-03"}'></head>`,
			want: Metadata{MetaDescription: "m", Tags: []string{"t"}, Author: "Y", DatePublished: "2024-02-03"},
		},
		{
			name: "multiline json",
			html: "<!-- METADATA:{\n  \"tags\": [\"a\"],\n  \"author\": \"Z\"\n} -->",
			want: Metadata{Tags: []string{"a"}, Author: "Z"},
		},
		{
			name: "broken canonical falls through to attribute",
			html: `<!-- METADATA:{not json} --><meta name="article-metadata" content='{"author":"W"}'>`,
			want: Metadata{Author: "W"},
		},
		{name: "missing", html: "<html><body>nothing</body></html>", wantErr: true},
		{name: "invalid json", html: `<!-- METADATA:{"tags": [} -->`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.html)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeMetadataExtractionFailed, apperr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFillsBlanks(t *testing.T) {
	def := Default("CALYCO", day)

	meta, ok := Resolve(`<!-- METADATA:{"tags":["one"]} -->`, def)
	assert.True(t, ok)
	assert.Equal(t, []string{"one"}, meta.Tags)
	assert.Equal(t, def.MetaDescription, meta.MetaDescription)
	assert.Equal(t, "CALYCO", meta.Author)
	assert.Equal(t, "2025-06-01", meta.DatePublished)

	meta, ok = Resolve("<p>no block</p>", def)
	assert.False(t, ok)
	assert.Equal(t, def, meta)
}

func TestEmbedRoundTrip(t *testing.T) {
	meta := Metadata{
		MetaDescription: "Colours & <finishes> for homes",
		Tags:            []string{"home décor 2025", "a --> b"},
		Author:          "CALYCO",
		DatePublished:   "2025-06-01",
	}
	html := "<html>\n<body>\n<p>Text</p>\n</body>\n</html>"

	out, err := Embed(html, meta)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "<!-- METADATA:"))
	assert.Less(t, strings.Index(out, "<!-- METADATA:"), strings.Index(out, "</body>"))

	back, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, meta, back)
}

func TestEmbedReplacesExistingBlocks(t *testing.T) {
	html := `<html><head><meta name="article-metadata" content='{"author":"old"}'></head>` +
		`<body><!-- METADATA:{"author":"older"} --></body></html>`

	out, err := Embed(html, Metadata{Author: "new"})
	require.NoError(t, err)

	assert.NotContains(t, out, "article-metadata")
	assert.Equal(t, 1, strings.Count(out, "METADATA:"))
	back, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, "new", back.Author)
	assert.Equal(t, []string{}, back.Tags)
}

func TestEmbedWithoutBody(t *testing.T) {
	out, err := Embed("<h1>Fragment</h1>\n", Metadata{Author: "A"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<h1>Fragment</h1>\n<!-- METADATA:"))

	again, err := Embed(out, Metadata{Author: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(again, "METADATA:"))
}

func TestEmbedIdempotent(t *testing.T) {
	meta := Default("CALYCO", day)
	once, err := Embed("<body></body>", meta)
	require.NoError(t, err)
	twice, err := Embed(once, meta)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
