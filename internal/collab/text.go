package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

const textService = "text generator"

// TextGenerator turns a prompt into an HTML article.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// TextSettings configures the Anthropic-backed writer.
type TextSettings struct {
	APIKey       string
	Model        string
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
}

// promptFunc is the shape of the SDK call, swapped out in tests.
type promptFunc func(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error)

// AnthropicWriter generates article HTML through the Anthropic messages API.
type AnthropicWriter struct {
	settings TextSettings
	prompt   promptFunc
}

// NewAnthropicWriter returns a writer for settings. A missing API key is not an
// error here; Generate reports it as an unavailable service.
func NewAnthropicWriter(settings TextSettings) *AnthropicWriter {
	return &AnthropicWriter{settings: settings, prompt: anthropicPrompt}
}

func anthropicPrompt(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", errors.New("no content in response")
	}
	return response.Content[0].Text, nil
}

type generation struct {
	text string
	err  error
}

// Generate sends prompt as the user turn. The SDK call takes no context, so it runs
// in its own goroutine and loses the race against the deadline when it is too slow.
func (w *AnthropicWriter) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if strings.TrimSpace(w.settings.APIKey) == "" {
		return "", apperr.Unavailable(textService, errors.New("no API key configured"))
	}

	ctx, cancel := withTimeout(ctx, w.settings.Timeout)
	defer cancel()

	settings := types.RequestSettings{
		Model:       w.settings.Model,
		MaxTokens:   w.settings.MaxTokens,
		Temperature: temperature,
	}

	done := make(chan generation, 1)
	go func() {
		text, err := w.prompt(w.settings.SystemPrompt, prompt, w.settings.APIKey, settings)
		done <- generation{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", apperr.Unavailable(textService, ctx.Err())
	case g := <-done:
		if g.err != nil {
			return "", apperr.Unavailable(textService, g.err)
		}
		if !looksLikeHTML(g.text) {
			return "", apperr.Unavailable(textService, fmt.Errorf("malformed response: %d bytes without markup", len(g.text)))
		}
		return g.text, nil
	}
}

func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.Contains(s, "<") && strings.Contains(s, ">")
}
