package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aktagon/content-pipeline/internal/apperr"
	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/selector"
	"github.com/aktagon/content-pipeline/internal/store"
)

type fakeImages struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeImages) Generate(context.Context, string, int, int) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestGradient(t *testing.T) {
	data, err := Gradient(Palettes["A"], Width, Height)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, Width, Height), img.Bounds())

	again, err := Gradient(Palettes["A"], Width, Height)
	require.NoError(t, err)
	assert.Equal(t, data, again, "gradient must be deterministic")

	other, err := Gradient(Palettes["B"], Width, Height)
	require.NoError(t, err)
	assert.NotEqual(t, data, other)

	_, err = Gradient(Palettes["A"], 0, 10)
	assert.Error(t, err)
}

func TestGradientColours(t *testing.T) {
	data, err := Gradient(Palettes["A"], 40, 100)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	r, g, b, _ := img.At(20, 0).RGBA()
	assert.InDelta(t, 245, r>>8, 2)
	assert.InDelta(t, 235, g>>8, 2)
	assert.InDelta(t, 240, b>>8, 2)

	// The vignette darkens the middle rows relative to the gradient alone.
	_, gMid, _, _ := img.At(20, 50).RGBA()
	assert.Less(t, gMid>>8, uint32(lerp(235, 245, 0.5)))
}

func TestVignetteAlpha(t *testing.T) {
	assert.Equal(t, 0, vignetteAlpha(0, 628))
	assert.Equal(t, 7, vignetteAlpha(313, 628))
	assert.Equal(t, 7, vignetteAlpha(314, 628))
	assert.Equal(t, 0, vignetteAlpha(627, 628))
	for y := 0; y < 628; y++ {
		assert.LessOrEqual(t, vignetteAlpha(y, 628), vignetteStrength)
	}
}

func TestNewValidatesLabels(t *testing.T) {
	_, err := New(store.NewMemStore(), nil, []string{"A", "Z"}, nil)
	assert.True(t, apperr.IsInvalidArgument(err))

	_, err = New(store.NewMemStore(), nil, []string{"A", "A"}, nil)
	assert.True(t, apperr.IsInvalidArgument(err))

	g, err := New(store.NewMemStore(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLabels, g.Labels())
}

func TestGenerateImageVariantsFallback(t *testing.T) {
	s := store.NewMemStore()
	images := &fakeImages{err: apperr.Unavailable("image generator", errors.New("no key"))}
	g, err := New(s, images, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := g.GenerateImageVariants(context.Background(), "calyco")
	require.NoError(t, err)
	assert.Equal(t, 2, images.calls)
	assert.Equal(t, []string{"A", "B"}, result.Fallbacks)
	assert.Equal(t, selector.MustSelect("calyco-image-rank", []string{"A", "B"}), result.Chosen)
	assert.Equal(t, map[string]string{"A": "hero_variant_A.png", "B": "hero_variant_B.png"}, result.Variants)
	assert.Equal(t, "outputs/hero.png", result.HeroPath)
	assert.Len(t, result.AltTexts, 2)
	assert.Equal(t, Palettes["B"].Description, result.PaletteInfo["B"])

	hero, err := s.Read(artifact.Hero)
	require.NoError(t, err)
	chosen, err := s.Read(artifact.Variant(result.Chosen))
	require.NoError(t, err)
	assert.Equal(t, chosen, hero)

	data, err := s.Read(artifact.ImageMetadata)
	require.NoError(t, err)
	require.NoError(t, artifact.Validate(artifact.ImageMetadata, data))

	var written ImageMetadata
	require.NoError(t, s.ReadJSON(artifact.ImageMetadata, &written))
	assert.Equal(t, result.ImageMetadata, written)
}

func TestGenerateImageVariantsIdempotent(t *testing.T) {
	run := func() ([]byte, string) {
		s := store.NewMemStore()
		g, err := New(s, nil, nil, nil)
		require.NoError(t, err)
		result, err := g.GenerateImageVariants(context.Background(), "calyco")
		require.NoError(t, err)
		hero, err := s.Read(artifact.Hero)
		require.NoError(t, err)
		return hero, result.Chosen
	}

	hero1, chosen1 := run()
	hero2, chosen2 := run()
	assert.Equal(t, chosen1, chosen2)
	assert.Equal(t, hero1, hero2)
}

func TestGenerateImageVariantsFromGenerator(t *testing.T) {
	s := store.NewMemStore()
	images := &fakeImages{data: []byte("png bytes")}
	g, err := New(s, images, []string{"A", "B", "C"}, nil)
	require.NoError(t, err)

	result, err := g.GenerateImageVariants(context.Background(), "seed")
	require.NoError(t, err)
	assert.Empty(t, result.Fallbacks)
	assert.Len(t, result.Variants, 3)
	assert.Contains(t, []string{"A", "B", "C"}, result.Chosen)

	hero, err := s.Read(artifact.Hero)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), hero)
}

func TestGenerateImageVariantsWriteFailure(t *testing.T) {
	s := store.NewMemStore()
	s.FailWrites = true
	g, err := New(s, nil, nil, nil)
	require.NoError(t, err)
	_, err = g.GenerateImageVariants(context.Background(), "calyco")
	assert.True(t, apperr.IsWriteFailed(err))
}
