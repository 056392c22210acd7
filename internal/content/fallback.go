package content

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed copy/fallback.yaml copy/article.html.tmpl
var copyFiles embed.FS

// FallbackTitle is the title of the built-in article.
const FallbackTitle = "Nature-Inspired Pastels: Transform Your Urban Home in 2025"

// CaptionSeparator joins captions in social_captions.txt.
const CaptionSeparator = "\n\n---\n\n"

type section struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
}

type faqItem struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// copyDeck holds the fixed prose of the fallback article, FAQ and captions.
type copyDeck struct {
	Title           string    `yaml:"title"`
	MetaDescription string    `yaml:"meta_description"`
	Intro           string    `yaml:"intro"`
	Sections        []section `yaml:"sections"`
	Takeaways       []string  `yaml:"takeaways"`
	HeroAlt         string    `yaml:"hero_alt"`
	Conclusion      string    `yaml:"conclusion"`
	FAQ             []faqItem `yaml:"faq"`
	Captions        []string  `yaml:"captions"`
}

var (
	deck            = mustLoadDeck()
	articleTemplate = template.Must(template.ParseFS(copyFiles, "copy/article.html.tmpl"))
)

func mustLoadDeck() *copyDeck {
	data, err := copyFiles.ReadFile("copy/fallback.yaml")
	if err != nil {
		panic(err)
	}
	var d copyDeck
	if err := yaml.Unmarshal(data, &d); err != nil {
		panic(fmt.Sprintf("parsing fallback copy: %v", err))
	}
	return &d
}

// renderFallback renders the built-in article without a metadata block.
func renderFallback() (string, error) {
	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, deck); err != nil {
		return "", fmt.Errorf("rendering fallback article: %w", err)
	}
	return buf.String(), nil
}

// FAQHTML renders the six fixed questions as a styled list.
func FAQHTML() (string, int) {
	var b strings.Builder
	b.WriteString(`<ul style="list-style: none; padding: 0;">`)
	for _, item := range deck.FAQ {
		fmt.Fprintf(&b, `<li style="margin-bottom: 1.5em; border-bottom: 1px solid #eee; padding-bottom: 1em;">`+
			`<strong style="color: #2c3e50; font-size: 1.05em;">Q: %s</strong>`+
			`<p style="margin-top: 0.8em; color: #555;">A: %s</p></li>`,
			html.EscapeString(item.Question), html.EscapeString(item.Answer))
	}
	b.WriteString(`</ul>`)
	return b.String(), len(deck.FAQ)
}

// SocialCaptions returns the three captions joined by CaptionSeparator.
func SocialCaptions() string {
	return strings.Join(deck.Captions, CaptionSeparator)
}
