// Package imagegen produces the hero image variants, picks the hero with the
// deterministic selector and records the choice in image_metadata.json.
package imagegen

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/collab"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/selector"
	"github.com/aktagon/content-pipeline/internal/store"
)

// DefaultLabels are the variants generated when none are configured.
var DefaultLabels = []string{"A", "B"}

// Credit is recorded with every hero image.
const Credit = "Generated hero image showcasing pastel design concepts"

// AltTexts are the hero alt-text candidates.
var AltTexts = []string{
	"A modern, sunlit living room featuring soft pastel walls in muted blush and sage green, with natural wood furniture, potted indoor plants, linen textiles, and warm morning light creating a serene, sophisticated atmosphere.",
	"A contemporary urban apartment interior with gentle pastel-coloured walls in soft lavender and cream, showcasing minimalist furniture, geometric artwork, and natural textures that create a calm, refined environment.",
}

// ImageMetadata is the content of image_metadata.json.
type ImageMetadata struct {
	Variants    map[string]string `json:"variants"`
	Chosen      string            `json:"chosen"`
	HeroPath    string            `json:"hero_path"`
	AltTexts    []string          `json:"alt_texts"`
	Credit      string            `json:"credit"`
	PaletteInfo map[string]string `json:"palette_info"`
}

// ImageResult is the recorded metadata plus the labels that used the placeholder.
type ImageResult struct {
	ImageMetadata
	Fallbacks []string
}

// Generator runs the image stage.
type Generator struct {
	store  store.Store
	images collab.ImageGenerator
	labels []string
	log    *zap.Logger
}

// New returns a Generator for labels, which must be known palette labels. An empty
// list selects DefaultLabels. A nil image generator always yields placeholders.
func New(s store.Store, images collab.ImageGenerator, labels []string, log *zap.Logger) (*Generator, error) {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if _, ok := Palettes[label]; !ok {
			return nil, apperr.InvalidArgument("unknown image variant %q", label)
		}
		if seen[label] {
			return nil, apperr.InvalidArgument("duplicate image variant %q", label)
		}
		seen[label] = true
	}
	return &Generator{store: s, images: images, labels: append([]string(nil), labels...), log: logger.OrNop(log)}, nil
}

// Labels returns the configured variant labels in generation order.
func (g *Generator) Labels() []string {
	return append([]string(nil), g.labels...)
}

// GenerateImageVariants writes one PNG per label, copies the variant chosen by
// Select(seedKey+"-image-rank", labels) to hero.png and writes image_metadata.json.
func (g *Generator) GenerateImageVariants(ctx context.Context, seedKey string) (*ImageResult, error) {
	if err := g.store.AppendLog("Starting image generation"); err != nil {
		return nil, err
	}

	result := &ImageResult{ImageMetadata: ImageMetadata{
		Variants:    make(map[string]string, len(g.labels)),
		HeroPath:    store.OutputsDirName + "/" + artifact.Hero,
		AltTexts:    append([]string(nil), AltTexts...),
		Credit:      Credit,
		PaletteInfo: make(map[string]string, len(g.labels)),
	}}

	for _, label := range g.labels {
		palette := Palettes[label]
		data, fallback, err := g.variant(ctx, palette)
		if err != nil {
			return nil, err
		}
		name := artifact.Variant(label)
		if err := g.store.Write(name, data); err != nil {
			return nil, err
		}
		if fallback {
			result.Fallbacks = append(result.Fallbacks, label)
		}
		result.Variants[label] = name
		result.PaletteInfo[label] = palette.Description
	}

	chosen, err := selector.Select(seedKey+"-image-rank", g.labels)
	if err != nil {
		return nil, err
	}
	result.Chosen = chosen
	if err := g.store.Copy(artifact.Variant(chosen), artifact.Hero); err != nil {
		return nil, err
	}

	if err := g.store.WriteJSON(artifact.ImageMetadata, result.ImageMetadata); err != nil {
		return nil, err
	}
	if err := g.store.AppendLog(fmt.Sprintf("Saved hero.png (variant %s) and image metadata", chosen)); err != nil {
		return nil, err
	}

	sort.Strings(result.Fallbacks)
	g.log.Info("image variants generated",
		zap.String("chosen", chosen),
		zap.Strings("labels", g.labels),
		zap.Strings("fallbacks", result.Fallbacks))
	return result, nil
}

// variant returns the generated image for palette, or its placeholder when the
// image generator is unavailable. The bool reports a placeholder.
func (g *Generator) variant(ctx context.Context, palette Palette) ([]byte, bool, error) {
	if g.images != nil {
		data, err := g.images.Generate(ctx, palette.Prompt, Width, Height)
		if err == nil {
			if err := g.store.AppendLog(fmt.Sprintf("Generated image variant %s via API", palette.Label)); err != nil {
				return nil, false, err
			}
			return data, false, nil
		}
		g.log.Warn("image generator unavailable, using gradient", zap.String("variant", palette.Label), zap.Error(err))
		if err := g.store.AppendLog(fmt.Sprintf("Image API error for variant %s: %v", palette.Label, err)); err != nil {
			return nil, false, err
		}
	}

	data, err := Gradient(palette, Width, Height)
	if err != nil {
		return nil, false, err
	}
	if err := g.store.AppendLog(fmt.Sprintf("Generated image variant %s (%s) via gradient", palette.Label, palette.Name)); err != nil {
		return nil, false, err
	}
	return data, true, nil
}
