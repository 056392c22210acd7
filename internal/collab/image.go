package collab

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

const imageService = "image generator"

// ImageGenerator renders a prompt into PNG bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

// ImageSettings configures the HTTP image generator.
type ImageSettings struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// HTTPImageGenerator calls an images endpoint that answers with base64 payloads
// ({"data":[{"b64_json":"..."}]}).
type HTTPImageGenerator struct {
	settings ImageSettings
	client   *http.Client
}

// NewHTTPImageGenerator returns a generator for settings.
func NewHTTPImageGenerator(settings ImageSettings) *HTTPImageGenerator {
	return &HTTPImageGenerator{settings: settings, client: newHTTPClient(settings.Timeout)}
}

type imageRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate requests one image and returns it PNG-encoded.
func (g *HTTPImageGenerator) Generate(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if strings.TrimSpace(g.settings.APIKey) == "" {
		return nil, apperr.Unavailable(imageService, errors.New("no API key configured"))
	}
	if strings.TrimSpace(g.settings.Endpoint) == "" {
		return nil, apperr.Unavailable(imageService, errors.New("no endpoint configured"))
	}

	ctx, cancel := withTimeout(ctx, g.settings.Timeout)
	defer cancel()

	payload, err := json.Marshal(imageRequest{
		Model:          g.settings.Model,
		Prompt:         prompt,
		Size:           fmt.Sprintf("%dx%d", width, height),
		N:              1,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, apperr.Unavailable(imageService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.settings.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Unavailable(imageService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.settings.APIKey)

	body, err := fetch(g.client, req, imageService)
	if err != nil {
		return nil, err
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Unavailable(imageService, fmt.Errorf("parsing response: %w", err))
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, apperr.Unavailable(imageService, errors.New("response carries no image"))
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, apperr.Unavailable(imageService, fmt.Errorf("decoding base64: %w", err))
	}
	return toPNG(raw)
}

// toPNG checks that raw is a decodable image and re-encodes anything but PNG.
func toPNG(raw []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Unavailable(imageService, fmt.Errorf("decoding image: %w", err))
	}
	if format == "png" {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, apperr.Unavailable(imageService, fmt.Errorf("encoding png: %w", err))
	}
	return buf.Bytes(), nil
}
